package cmd

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gitlanes/gitlanes/internal/buildinfo"
	"github.com/gitlanes/gitlanes/internal/config"
	"github.com/gitlanes/gitlanes/internal/export"
	"github.com/gitlanes/gitlanes/internal/git"
	"github.com/gitlanes/gitlanes/internal/graph"
	"github.com/gitlanes/gitlanes/internal/render"
	"github.com/gitlanes/gitlanes/internal/tui"
	"github.com/gitlanes/gitlanes/internal/watch"
)

func Run() error {
	return run(os.Args[1:])
}

func run(args []string) error {
	fs := flag.NewFlagSet("gitlanes", flag.ContinueOnError)
	refName := fs.String("ref", "", "branch to show instead of HEAD")
	pathspec := fs.String("pathspec", "", "only show commits touching this path (disables the graph)")
	mode := fs.String("mode", render.ThemeAuto.String(), "color mode: auto, light, or dark")
	noWatch := fs.Bool("nowatch", false, "disable automatic reload when the repository changes")
	noColor := fs.Bool("nocolor", false, "disable colored output")
	printOnly := fs.Bool("print", false, "print the graph to stdout instead of opening the viewer")
	limit := fs.Int("limit", 0, "maximum rows to print (0 = all) in print mode")
	exportFormat := fs.String("export", "", "export the topology instead of viewing: dot or svg")
	output := fs.String("o", "", "write print/export output to a file instead of stdout")
	configPath := fs.String("config", "", "path to the settings file")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Println(buildinfo.VersionWithTags())
		return nil
	}
	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	repoPath := "."
	if remaining := fs.Args(); len(remaining) > 0 {
		repoPath = remaining[len(remaining)-1]
	}

	svc, err := git.Open(repoPath)
	if err != nil {
		return err
	}

	path := *configPath
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}
	settings, err := config.Load(path)
	if err != nil {
		slog.Error("settings", slog.Any("error", err))
		settings = config.Default()
	}

	theme := render.ThemeForPreference(render.ThemePreferenceFromString(*mode))
	theme.NoColor = *noColor
	renderer := render.New(theme)

	checker := git.NewStatusChecker(svc)
	engine := graph.New(svc, checker, settings.Graph(), theme.Palette)

	var ref *graph.Ref
	if *refName != "" {
		ref, err = svc.LookupBranch(*refName)
		if err != nil {
			return err
		}
	} else {
		ref, err = svc.Head()
		if err != nil {
			return err
		}
	}

	if *pathspec != "" {
		engine.SetPathspec(*pathspec)
	}
	engine.SetReference(ref)

	if *exportFormat != "" {
		return runExport(engine, checker, *exportFormat, *output)
	}
	if *printOnly {
		return runPrint(engine, checker, renderer, settings.Compact, *limit, *output)
	}
	return runTUI(svc, engine, checker, renderer, settings.Compact, !*noWatch)
}

// drain waits out the status check and walks the remaining history. stop
// bounds the row count when positive.
func drain(engine *graph.Engine, checker *git.StatusChecker, stop int) error {
	if done := checker.Done(); done != nil {
		<-done
		engine.Apply(graph.StatusResolved{})
	}
	for engine.CanFetchMore() {
		if stop > 0 && engine.Len() >= stop {
			break
		}
		if _, err := engine.FetchMore(); err != nil {
			return err
		}
	}
	return nil
}

func runPrint(engine *graph.Engine, checker *git.StatusChecker, renderer *render.Renderer, compact bool, limit int, output string) error {
	if err := drain(engine, checker, limit); err != nil {
		return err
	}
	rows := engine.Rows()
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return writeOutput(output, []byte(renderer.Rows(rows, compact)+"\n"))
}

func runExport(engine *graph.Engine, checker *git.StatusChecker, format, output string) error {
	if err := drain(engine, checker, 0); err != nil {
		return err
	}
	dot := export.ToDOT(engine.Rows())
	switch format {
	case "dot":
		return writeOutput(output, []byte(dot))
	case "svg":
		svg, err := export.RenderSVG(dot)
		if err != nil {
			return err
		}
		return writeOutput(output, svg)
	default:
		return fmt.Errorf("unknown export format %q (want dot or svg)", format)
	}
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func runTUI(svc *git.Service, engine *graph.Engine, checker *git.StatusChecker, renderer *render.Renderer, compact, watchRepo bool) error {
	var watcher *watch.Watcher
	if watchRepo {
		var err error
		watcher, err = watch.New(svc.RepoPath())
		if err != nil {
			slog.Error("auto reload disabled", slog.Any("error", err))
			watcher = nil
		} else {
			defer watcher.Close()
		}
	}
	defer checker.Cancel()

	model := tui.New(engine, checker, watcher, renderer, compact)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

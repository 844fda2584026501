package git

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/gitlanes/gitlanes/internal/graph"
)

const mergeHeadRef = "MERGE_HEAD"

// Service wraps a repository and implements the traversal collaborator the
// layout engine consumes.
type Service struct {
	repo *gitlib.Repository
	path string
}

func Open(repoPath string) (*Service, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &Service{repo: repo, path: abs}, nil
}

func (s *Service) RepoPath() string {
	return s.path
}

// Head resolves the checked-out reference. A repository without commits
// (unborn HEAD) yields nil, which keeps the engine empty instead of
// failing.
func (s *Service) Head() (*graph.Ref, error) {
	ref, err := s.repo.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	name := ref.Name().Short()
	return &graph.Ref{
		Name:          name,
		Hash:          ref.Hash(),
		IsHead:        true,
		IsLocalBranch: ref.Name().IsBranch(),
	}, nil
}

// LookupBranch resolves a local branch by name.
func (s *Service) LookupBranch(name string) (*graph.Ref, error) {
	ref, err := s.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %q: %w", name, err)
	}
	head, err := s.repo.Head()
	isHead := err == nil && head.Name() == ref.Name()
	return &graph.Ref{
		Name:          name,
		Hash:          ref.Hash(),
		IsHead:        isHead,
		IsLocalBranch: true,
	}, nil
}

// Walk starts a traversal from ref plus its companion start points: the
// upstream of a local branch, MERGE_HEAD during an in-progress merge, and
// every non-stash reference when AllRefs is set.
func (s *Service) Walk(ref graph.Ref, opts graph.WalkOptions) (graph.Walker, error) {
	w := newRevWalk(s.repo.Storer, opts.Sort, opts.Pathspec)
	if err := w.Push(ref.Hash); err != nil {
		return nil, fmt.Errorf("push %s: %w", ref.Name, err)
	}

	if ref.IsLocalBranch {
		if up := s.upstream(ref.Name); up != plumbing.ZeroHash {
			w.pushQuiet(up)
		}
	}
	if ref.IsHead {
		if mh, err := s.repo.Reference(plumbing.ReferenceName(mergeHeadRef), true); err == nil {
			w.pushQuiet(mh.Hash())
		}
	}
	if opts.AllRefs {
		iter, err := s.repo.References()
		if err != nil {
			return nil, fmt.Errorf("list references: %w", err)
		}
		defer iter.Close()
		_ = iter.ForEach(func(r *plumbing.Reference) error {
			if r.Type() != plumbing.HashReference {
				return nil
			}
			if r.Name() == "refs/stash" {
				return nil
			}
			w.pushQuiet(r.Hash())
			return nil
		})
	}

	return w, nil
}

// upstream resolves the remote-tracking tip configured for a local branch,
// or the zero hash when there is none.
func (s *Service) upstream(branch string) plumbing.Hash {
	cfg, err := s.repo.Config()
	if err != nil {
		return plumbing.ZeroHash
	}
	b, ok := cfg.Branches[branch]
	if !ok || b.Remote == "" || b.Merge == "" {
		return plumbing.ZeroHash
	}
	short := strings.TrimPrefix(b.Merge.String(), "refs/heads/")
	name := plumbing.NewRemoteReferenceName(b.Remote, short)
	ref, err := s.repo.Reference(name, true)
	if err != nil {
		slog.Debug("upstream not resolvable",
			slog.String("branch", branch),
			slog.String("remote", name.String()),
		)
		return plumbing.ZeroHash
	}
	return ref.Hash()
}

package store

import (
	"fmt"
	"sort"

	"kotadb/internal/kerrors"
)

// TraversalResult is the shared shape returned by QueryDependents and
// QueryDependencies.
type TraversalResult struct {
	Direct            []string
	Indirect          map[int][]string
	Cycles            [][]string
	UnresolvedImports []string
}

// QueryDependencies performs a forward BFS (outgoing references) from
// fileID up to depth hops.
func (s *Store) QueryDependencies(fileID string, depth int, referenceTypes []string) (*TraversalResult, error) {
	return s.traverse(fileID, depth, referenceTypes, true)
}

// QueryDependents performs a backward BFS (incoming references) from
// fileID up to depth hops.
func (s *Store) QueryDependents(fileID string, depth int, referenceTypes []string) (*TraversalResult, error) {
	return s.traverse(fileID, depth, referenceTypes, false)
}

type bfsItem struct {
	id    string
	depth int
	path  []string // file paths from the start node to this node, inclusive
}

// traverse holds the Store's RLock for the whole operation and calls only
// the lock-free *Locked query helpers hop by hop, the same nested-RLock
// avoidance the teacher's TraversePath/QueryLinks split uses.
func (s *Store) traverse(fileID string, depth int, referenceTypes []string, forward bool) (*TraversalResult, error) {
	if depth < 1 || depth > 5 {
		return nil, fmt.Errorf("%w: depth must be in [1,5], got %d", kerrors.ErrInvalidParams, depth)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start, err := s.fileByIDLocked(fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: file %s", kerrors.ErrNotFound, fileID)
	}

	files, err := s.listFilesByRepositoryLocked(start.RepositoryID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*File, len(files))
	byPath := make(map[string]*File, len(files))
	for _, f := range files {
		byID[f.ID] = f
		byPath[f.Path] = f
	}

	wantType := func(t string) bool {
		if len(referenceTypes) == 0 {
			return true
		}
		for _, rt := range referenceTypes {
			if rt == t {
				return true
			}
		}
		return false
	}

	result := &TraversalResult{Indirect: make(map[int][]string)}
	unresolved := make(map[string]bool)
	visited := map[string]bool{start.ID: true}
	queue := []bfsItem{{id: start.ID, depth: 0, path: []string{start.Path}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= depth {
			continue
		}

		var refs []Reference
		if forward {
			refs, err = s.referencesFromFileLocked(cur.id)
		} else {
			curFile := byID[cur.id]
			refs, err = s.referencesTargetingLocked(curFile.Path)
		}
		if err != nil {
			return nil, err
		}

		for _, r := range refs {
			if !wantType(r.ReferenceType) {
				continue
			}

			var next *File
			if forward {
				if r.TargetFilePath == "" {
					if r.ImportSource != "" {
						unresolved[r.ImportSource] = true
					}
					continue
				}
				next = byPath[r.TargetFilePath]
			} else {
				next = byID[r.FileID]
			}
			if next == nil {
				continue
			}

			if idx := indexOfPath(cur.path, next.Path); idx >= 0 {
				cycle := append(append([]string{}, cur.path[idx:]...), next.Path)
				result.Cycles = append(result.Cycles, cycle)
				continue
			}

			if visited[next.ID] {
				continue
			}
			visited[next.ID] = true

			newDepth := cur.depth + 1
			if newDepth == 1 {
				result.Direct = append(result.Direct, next.Path)
			} else {
				result.Indirect[newDepth] = append(result.Indirect[newDepth], next.Path)
			}

			newPath := append(append([]string{}, cur.path...), next.Path)
			queue = append(queue, bfsItem{id: next.ID, depth: newDepth, path: newPath})
		}
	}

	sort.Strings(result.Direct)
	for d := range result.Indirect {
		sort.Strings(result.Indirect[d])
	}
	for imp := range unresolved {
		result.UnresolvedImports = append(result.UnresolvedImports, imp)
	}
	sort.Strings(result.UnresolvedImports)

	return result, nil
}

func indexOfPath(path []string, target string) int {
	for i, p := range path {
		if p == target {
			return i
		}
	}
	return -1
}

// Package deps infers dependencies between jobs from their declared
// outputs and inputs, and orders them into level-based execution groups.
package deps

import (
	"sort"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/job"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// Graph maps each job to the set of jobs it depends on.
type Graph struct {
	dependencies map[string]map[string]bool
	producers    map[string]string
}

// Build constructs the graph in two passes: first index every declared
// output by its producing job, then record a dependency wherever a job
// reads (context or target) a path some other job produces. Explicit
// depends_on entries augment the inferred set. Two jobs declaring the
// same output is a configuration error: it would be a write race in
// batch mode.
func Build(jobsList []*job.Job, log *zap.Logger) (*Graph, error) {
	g := &Graph{
		dependencies: make(map[string]map[string]bool),
		producers:    make(map[string]string),
	}
	known := make(map[string]bool, len(jobsList))
	for _, j := range jobsList {
		known[j.ID] = true
	}

	for _, j := range jobsList {
		outputs := []string{j.Meta.OutputPath()}
		outputs = append(outputs, j.Meta.OutputFiles...)
		for _, out := range outputs {
			if prev, ok := g.producers[out]; ok && prev != j.ID {
				return nil, &wserr.DuplicateProducer{Path: out, Jobs: []string{prev, j.ID}}
			}
			g.producers[out] = j.ID
		}
	}

	for _, j := range jobsList {
		deps := make(map[string]bool)

		inputs := append([]string{}, j.Meta.ContextFiles...)
		inputs = append(inputs, j.Meta.TargetFiles...)
		for _, in := range inputs {
			if producer, ok := g.producers[in]; ok && producer != j.ID {
				deps[producer] = true
			}
		}

		for _, dep := range j.Meta.DependsOn {
			if dep == j.ID {
				continue
			}
			if !known[dep] {
				log.Warn("depends_on references unknown job",
					zap.String("job", j.ID), zap.String("depends_on", dep))
				continue
			}
			deps[dep] = true
		}

		g.dependencies[j.ID] = deps
	}

	return g, nil
}

// DependsOn reports whether a depends (directly) on b.
func (g *Graph) DependsOn(a, b string) bool {
	return g.dependencies[a][b]
}

// Dependencies returns a job's direct dependencies, sorted.
func (g *Graph) Dependencies(id string) []string {
	var out []string
	for dep := range g.dependencies[id] {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

// Producer returns the job that declares path as an output, if any.
func (g *Graph) Producer(path string) (string, bool) {
	id, ok := g.producers[path]
	return id, ok
}

// ExecutionGroups orders ready jobs into dependency levels: the first
// group is every job with no in-queue dependency; each later group's
// jobs depend only on earlier groups. Dependencies outside the ready set
// are treated as already satisfied. A non-empty remainder means the
// dependency relation has a cycle, which is reported as an error rather
// than a partial ordering. Groups are sorted lexicographically.
func (g *Graph) ExecutionGroups(ready []string) ([][]string, error) {
	readySet := make(map[string]bool, len(ready))
	remaining := make(map[string]bool, len(ready))
	for _, id := range ready {
		readySet[id] = true
		remaining[id] = true
	}

	completed := make(map[string]bool)
	var groups [][]string

	for len(remaining) > 0 {
		var runnable []string
		for id := range remaining {
			ok := true
			for dep := range g.dependencies[id] {
				if readySet[dep] && !completed[dep] {
					ok = false
					break
				}
			}
			if ok {
				runnable = append(runnable, id)
			}
		}

		if len(runnable) == 0 {
			var rest []string
			for id := range remaining {
				rest = append(rest, id)
			}
			sort.Strings(rest)
			return nil, &wserr.CyclicDependency{Remaining: rest}
		}

		sort.Strings(runnable)
		for _, id := range runnable {
			delete(remaining, id)
			completed[id] = true
		}
		groups = append(groups, runnable)
	}

	return groups, nil
}

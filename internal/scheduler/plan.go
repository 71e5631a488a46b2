package scheduler

import (
	"sort"

	"github.com/mo2build/mob/internal/config"
	"github.com/mo2build/mob/internal/errors"
	"github.com/mo2build/mob/internal/task"
)

// TaskHandle pairs a task descriptor with the settings resolved for it.
// Enabled and Exclusive are lifted out of the settings because the planner
// and the orchestrator branch on them.
type TaskHandle struct {
	Task      *task.Task
	Settings  config.TaskSettings
	Enabled   bool
	Exclusive bool
}

// Group is one batch of tasks that may run concurrently. Groups execute in
// ascending Index order; a group only starts once the previous group is
// fully terminal.
type Group struct {
	Index int
	Tasks []*TaskHandle
}

// Plan is the immutable execution plan for one run: the selected tasks
// partitioned into their groups, plus the configuration they run under.
type Plan struct {
	Groups []Group
	Config *config.Resolved
}

// NewPlan selects tasks and partitions them into groups.
//
// An empty selection plans every task whose resolved enabled flag is true.
// A non-empty selection resolves each selector (task name, alternate name,
// alias or glob) against the registry and plans exactly the union; a
// selected task is planned even when its enabled flag is false, and a
// selector matching nothing fails with a TaskNotFoundError. Tasks outside
// the selection are never pulled in, not even dependencies of selected
// ones.
//
// Within the plan, groups are ordered ascending and empty groups are
// dropped; tasks within a group are ordered by canonical name.
func NewPlan(registry *task.Registry, resolved *config.Resolved, selection []string) (*Plan, error) {
	if registry == nil {
		return nil, errors.NewValidationError("plan needs a task registry")
	}
	if resolved == nil {
		return nil, errors.NewValidationError("plan needs a resolved configuration")
	}

	candidates := map[string]bool{}
	if len(selection) == 0 {
		for _, t := range registry.Tasks() {
			if settings, ok := resolved.Task(t.Name); ok && settings.Enabled {
				candidates[t.Name] = true
			}
		}
	} else {
		for _, selector := range selection {
			scope, err := config.ParseScope(selector)
			if err != nil {
				return nil, err
			}
			names := scope.Resolve(registry)
			if len(names) == 0 {
				return nil, errors.NewTaskNotFoundError(selector)
			}
			for _, name := range names {
				candidates[name] = true
			}
		}
	}

	byGroup := map[int][]*TaskHandle{}
	for name := range candidates {
		t, ok := registry.Get(name)
		if !ok {
			return nil, errors.NewTaskNotFoundError(name)
		}
		settings, _ := resolved.Task(name)
		byGroup[t.Group] = append(byGroup[t.Group], &TaskHandle{
			Task:      t,
			Settings:  settings,
			Enabled:   settings.Enabled,
			Exclusive: settings.Exclusive,
		})
	}

	indices := make([]int, 0, len(byGroup))
	for index := range byGroup {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	plan := &Plan{Config: resolved}
	for _, index := range indices {
		handles := byGroup[index]
		sort.Slice(handles, func(i, j int) bool {
			return handles[i].Task.Name < handles[j].Task.Name
		})
		plan.Groups = append(plan.Groups, Group{Index: index, Tasks: handles})
	}
	return plan, nil
}

// Len returns the total number of planned tasks.
func (p *Plan) Len() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Tasks)
	}
	return n
}

// TaskNames returns the planned task names in execution order: group by
// group, canonical order within each group.
func (p *Plan) TaskNames() []string {
	names := make([]string, 0, p.Len())
	for _, g := range p.Groups {
		for _, h := range g.Tasks {
			names = append(names, h.Task.Name)
		}
	}
	return names
}

// Validate checks the structural integrity of the plan. A plan produced by
// NewPlan always validates; hand-built plans may not.
func (p *Plan) Validate() error {
	if p.Config == nil {
		return errors.NewValidationError("plan has no resolved configuration")
	}

	seen := map[string]bool{}
	lastIndex := 0
	for _, g := range p.Groups {
		if g.Index <= lastIndex {
			return errors.NewValidationError("plan groups out of order").
				WithField("group").WithValue(g.Index)
		}
		lastIndex = g.Index

		if len(g.Tasks) == 0 {
			return errors.NewValidationError("plan contains an empty group").
				WithField("group").WithValue(g.Index)
		}
		for _, h := range g.Tasks {
			if h == nil || h.Task == nil {
				return errors.NewValidationError("plan contains an empty task handle").
					WithField("group").WithValue(g.Index)
			}
			if seen[h.Task.Name] {
				return errors.NewValidationError("task planned twice").
					WithField("task").WithValue(h.Task.Name)
			}
			seen[h.Task.Name] = true
		}
	}
	return nil
}

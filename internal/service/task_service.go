package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskledger/internal/ident"
	"taskledger/internal/model"
	"taskledger/internal/ordering"
	"taskledger/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// TaskPatch lists the task fields to change. Nil fields are left alone.
type TaskPatch struct {
	Title  *string `json:"title,omitempty"`
	Detail *string `json:"detail,omitempty"`
}

// MoveRequest describes a drag from one container to another, or within one.
// OrderedIDsInTo is the complete final order of the destination and must
// contain TaskID. A nil OrderedIDsInFrom makes the service close the gap in
// the source itself. Ids in either list that are unknown are skipped, and so
// are ids of tasks that sit in a different container than the list describes;
// their orders are never rewritten by this request.
type MoveRequest struct {
	TaskID           string          `json:"taskId"`
	From             model.Container `json:"from"`
	To               model.Container `json:"to"`
	OrderedIDsInTo   []string        `json:"orderedIdsInTo"`
	OrderedIDsInFrom []string        `json:"orderedIdsInFrom,omitempty"`
}

// ModuleTasks holds the two halves of a module.
type ModuleTasks struct {
	Pending []model.Task `json:"pending"`
	Done    []model.Task `json:"done"`
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store *repository.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewTaskService(store *repository.Store, log zerolog.Logger) *TaskService {
	return &TaskService{store: store, log: log, now: time.Now}
}

func (s *TaskService) Get(ctx context.Context, id string) (*model.Task, error) {
	return s.store.Task.Get(ctx, id)
}

// List returns every task.
func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.store.Task.List(ctx)
}

// ListByModule splits a module's tasks into pending and done, each by order.
func (s *TaskService) ListByModule(ctx context.Context, moduleID string) (ModuleTasks, error) {
	tasks, err := s.store.Task.ListByModule(ctx, moduleID)
	if err != nil {
		return ModuleTasks{}, err
	}
	return SplitTasks(tasks), nil
}

// SplitTasks partitions tasks into pending and done and sorts each half.
func SplitTasks(tasks []model.Task) ModuleTasks {
	out := ModuleTasks{Pending: []model.Task{}, Done: []model.Task{}}
	for _, t := range tasks {
		if t.Done() {
			out.Done = append(out.Done, t)
		} else {
			out.Pending = append(out.Pending, t)
		}
	}
	ordering.SortTasks(out.Pending)
	ordering.SortTasks(out.Done)
	return out
}

// Create puts a new pending task at the top of the module.
func (s *TaskService) Create(ctx context.Context, moduleID string, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalid("title", "task title must not be empty")
	}

	var task model.Task
	err := s.store.Transaction(ctx, func(tx *repository.Tx) error {
		if err := requireModule(ctx, tx, moduleID); err != nil {
			return err
		}
		orders, err := tx.Task.ContainerOrders(ctx, model.NewContainer(model.KindPending, moduleID), "")
		if err != nil {
			return err
		}
		t := s.now()
		task = model.Task{
			ID:        ident.NewID(ident.PrefixTask),
			ModuleID:  moduleID,
			Title:     title,
			Detail:    input.Detail,
			Order:     ordering.Prepend(orders),
			CreatedAt: t,
			UpdatedAt: t,
		}
		return tx.Task.Create(ctx, &task)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("task_id", task.ID).Str("module_id", moduleID).Int("order", task.Order).Msg("task created")
	return &task, nil
}

// Update edits title or detail. Unknown ids are ignored.
func (s *TaskService) Update(ctx context.Context, id string, patch TaskPatch) error {
	fields := map[string]any{"updated_at": s.now()}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return invalid("title", "task title must not be empty")
		}
		fields["title"] = title
	}
	if patch.Detail != nil {
		fields["detail"] = *patch.Detail
	}
	return s.store.Task.Update(ctx, id, fields)
}

// Delete removes a task. Siblings keep their orders.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.store.Task.DeleteByIDs(ctx, id)
}

// SetCompletion moves a task between the halves of its module. Completed
// tasks go to the end of done; reopened tasks go to the top of pending.
func (s *TaskService) SetCompletion(ctx context.Context, id string, completed bool) error {
	return s.store.Transaction(ctx, func(tx *repository.Tx) error {
		task, err := tx.Task.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		t := s.now()
		fields := map[string]any{"updated_at": t}
		if completed {
			orders, err := tx.Task.ContainerOrders(ctx, model.NewContainer(model.KindDone, task.ModuleID), id)
			if err != nil {
				return err
			}
			fields["completed_at"] = t
			fields["sort_order"] = ordering.Append(orders)
		} else {
			orders, err := tx.Task.ContainerOrders(ctx, model.NewContainer(model.KindPending, task.ModuleID), id)
			if err != nil {
				return err
			}
			fields["completed_at"] = nil
			fields["sort_order"] = ordering.Prepend(orders)
		}

		s.log.Debug().Str("task_id", id).Bool("completed", completed).Msg("task completion changed")
		return tx.Task.Update(ctx, id, fields)
	})
}

// MoveAndReorder applies a drag and drop. The destination order is taken from
// the request verbatim; existing order values there are overwritten.
func (s *TaskService) MoveAndReorder(ctx context.Context, req MoveRequest) error {
	if req.TaskID == "" {
		return invalid("taskId", "task id is required")
	}
	if !req.To.Kind.Valid() || req.To.ModuleID == "" {
		return invalid("to", "destination container is invalid")
	}
	if !req.From.Kind.Valid() || req.From.ModuleID == "" {
		return invalid("from", "source container is invalid")
	}
	if !slices.Contains(req.OrderedIDsInTo, req.TaskID) {
		return invalid("orderedIdsInTo", "destination order must contain the moved task")
	}

	return s.store.Transaction(ctx, func(tx *repository.Tx) error {
		if _, err := tx.Task.Get(ctx, req.TaskID); errors.Is(err, repository.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if err := requireModule(ctx, tx, req.To.ModuleID); err != nil {
			return err
		}

		t := s.now()
		fields := map[string]any{"module_id": req.To.ModuleID, "updated_at": t, "completed_at": nil}
		if req.To.Kind == model.KindDone {
			fields["completed_at"] = t
		}
		if err := tx.Task.Update(ctx, req.TaskID, fields); err != nil {
			return err
		}

		if err := s.resequence(ctx, tx, req.To, req.OrderedIDsInTo, t); err != nil {
			return err
		}
		if req.From == req.To {
			return nil
		}
		if req.OrderedIDsInFrom != nil {
			return s.resequence(ctx, tx, req.From, ordering.Without(req.OrderedIDsInFrom, req.TaskID), t)
		}

		members, err := tx.Task.ListContainer(ctx, req.From)
		if err != nil {
			return err
		}
		return s.apply(ctx, tx, members, ordering.CloseGap(members, req.TaskID), t)
	})
}

// resequence writes order = position for the listed ids that still belong to c.
func (s *TaskService) resequence(ctx context.Context, tx *repository.Tx, c model.Container, ids []string, t time.Time) error {
	found, err := tx.Task.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	placements := ordering.Assign(ids, func(id string) bool {
		task, ok := found[id]
		return ok && c.Contains(task)
	})
	members := make([]model.Task, 0, len(found))
	for _, task := range found {
		members = append(members, task)
	}
	return s.apply(ctx, tx, members, placements, t)
}

func (s *TaskService) apply(ctx context.Context, tx *repository.Tx, members []model.Task, placements []ordering.Placement, t time.Time) error {
	byID := make(map[string]model.Task, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	out := make([]model.Task, 0, len(placements))
	for _, p := range placements {
		task, ok := byID[p.ID]
		if !ok {
			continue
		}
		task.Order = p.Order
		task.UpdatedAt = t
		out = append(out, task)
	}
	return tx.Task.SaveAll(ctx, out)
}

func requireModule(ctx context.Context, tx *repository.Tx, moduleID string) error {
	ok, err := tx.Module.Exists(ctx, moduleID)
	if err != nil {
		return err
	}
	if !ok {
		return invalid("moduleId", "module %q does not exist", moduleID)
	}
	return nil
}

package reconcile

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/pushmyself/internal/model"
	"github.com/hitoshi/pushmyself/internal/repository"
)

// NewTodo はAddTodoの入力。
type NewTodo struct {
	Text        string         `json:"text"`
	Priority    model.Priority `json:"priority"`
	Type        string         `json:"type,omitempty"`
	Link        string         `json:"link,omitempty"`
	Description string         `json:"description,omitempty"`
}

// AddTodo はTodoを日付の末尾に追加する。
// ネットワーク側ではorder_indexをサーバーのシーケンスから払い出し、払い出された値をローカルにも反映する。
func (s *Service) AddTodo(ctx context.Context, date string, input NewTodo) (model.Todo, SyncReport, error) {
	if strings.TrimSpace(input.Text) == "" {
		return model.Todo{}, SyncReport{Date: date}, model.NewEmptyTextError()
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return model.Todo{}, SyncReport{Date: date}, model.NewInvalidPriorityError(string(priority))
	}

	var (
		created  model.Todo
		assigned *int
	)
	_, report, err := s.mutateDay(ctx, date, func(day *model.DayData, now time.Time) (*dayWrites, error) {
		created = model.Todo{
			ID:          s.ids.Next(),
			Text:        input.Text,
			Priority:    priority,
			OrderIndex:  len(day.Todos),
			Type:        input.Type,
			Link:        input.Link,
			Description: input.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		day.Todos = model.Renumber(append(model.SortByOrderIndex(day.Todos), created))

		todo := created
		return &dayWrites{todos: func(ctx context.Context, ownerID string) error {
			saved, err := s.todos.Create(ctx, ownerID, date, todo)
			if err != nil {
				return err
			}
			s.adoptOrderIndex(date, saved.ID, saved.OrderIndex)
			assigned = &saved.OrderIndex
			return nil
		}}, nil
	})
	if err == nil && !report.Pending && assigned != nil {
		created.OrderIndex = *assigned
	}
	return created, report, err
}

// ToggleTodo はTodoの完了状態を反転する。
func (s *Service) ToggleTodo(ctx context.Context, date string, id int64) (model.Todo, SyncReport, error) {
	var toggled model.Todo
	_, report, err := s.mutateDay(ctx, date, func(day *model.DayData, now time.Time) (*dayWrites, error) {
		i := todoIndex(day.Todos, id)
		if i < 0 {
			return nil, model.NewTodoNotFoundError(date, id)
		}
		day.Todos[i].Completed = !day.Todos[i].Completed
		day.Todos[i].UpdatedAt = now
		day.Todos[i].Extra = day.Todos[i].Extra.Without("completed", "updated_at")
		toggled = day.Todos[i]

		completed := toggled.Completed
		return &dayWrites{todos: s.updateTodo(date, id, repository.TodoPatch{Completed: &completed})}, nil
	})
	return toggled, report, err
}

// EditTodo はパッチで指定されたフィールドのみ変更する。並び順は変えない。
func (s *Service) EditTodo(ctx context.Context, date string, id int64, patch repository.TodoPatch) (model.Todo, SyncReport, error) {
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return model.Todo{}, SyncReport{Date: date}, model.NewEmptyTextError()
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return model.Todo{}, SyncReport{Date: date}, model.NewInvalidPriorityError(string(*patch.Priority))
	}

	var edited model.Todo
	_, report, err := s.mutateDay(ctx, date, func(day *model.DayData, now time.Time) (*dayWrites, error) {
		i := todoIndex(day.Todos, id)
		if i < 0 {
			return nil, model.NewTodoNotFoundError(date, id)
		}
		t := &day.Todos[i]
		replaced := []string{"updated_at"}
		if patch.Text != nil {
			t.Text = *patch.Text
			replaced = append(replaced, "text")
		}
		if patch.Completed != nil {
			t.Completed = *patch.Completed
			replaced = append(replaced, "completed")
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
			replaced = append(replaced, "priority")
		}
		if patch.Type != nil {
			t.Type = *patch.Type
			replaced = append(replaced, "type")
		}
		if patch.Link != nil {
			t.Link = *patch.Link
			replaced = append(replaced, "link")
		}
		if patch.Description != nil {
			t.Description = *patch.Description
			replaced = append(replaced, "description")
		}
		t.UpdatedAt = now
		t.Extra = t.Extra.Without(replaced...)
		edited = *t
		return &dayWrites{todos: s.updateTodo(date, id, patch)}, nil
	})
	return edited, report, err
}

// DeleteTodo はTodoを削除し、残りのorder_indexを詰める。
func (s *Service) DeleteTodo(ctx context.Context, date string, id int64) (SyncReport, error) {
	_, report, err := s.mutateDay(ctx, date, func(day *model.DayData, _ time.Time) (*dayWrites, error) {
		i := todoIndex(day.Todos, id)
		if i < 0 {
			return nil, model.NewTodoNotFoundError(date, id)
		}
		remaining := slices.Delete(slices.Clone(day.Todos), i, i+1)
		day.Todos = model.Renumber(model.SortByOrderIndex(remaining))
		return &dayWrites{todos: func(ctx context.Context, ownerID string) error {
			return s.todos.Delete(ctx, ownerID, date, id)
		}}, nil
	})
	return report, err
}

// ReorderTodos はTodoをidsの順に並べ替え、order_indexを0から振り直す。
// idsはその日の全TodoのIDをちょうど1回ずつ含む必要がある。
// ネットワーク側は日付単位の全置換のため、他デバイスの同時変更は後から書いた側で上書きされる。
func (s *Service) ReorderTodos(ctx context.Context, date string, ids []int64) ([]model.Todo, SyncReport, error) {
	var ordered []model.Todo
	_, report, err := s.mutateDay(ctx, date, func(day *model.DayData, _ time.Time) (*dayWrites, error) {
		if len(ids) != len(day.Todos) {
			return nil, model.NewReorderMismatchError()
		}
		byID := make(map[int64]model.Todo, len(day.Todos))
		for _, t := range day.Todos {
			byID[t.ID] = t
		}
		next := make([]model.Todo, 0, len(ids))
		for _, id := range ids {
			t, ok := byID[id]
			if !ok {
				return nil, model.NewReorderMismatchError()
			}
			delete(byID, id)
			next = append(next, t)
		}
		day.Todos = model.Renumber(next)
		for i := range day.Todos {
			day.Todos[i].Extra = day.Todos[i].Extra.Without("order_index")
		}
		ordered = append([]model.Todo(nil), day.Todos...)
		todos := slices.Clone(ordered)
		return &dayWrites{todos: func(ctx context.Context, ownerID string) error {
			return s.todos.ReplaceAllForDate(ctx, ownerID, date, todos)
		}}, nil
	})
	return ordered, report, err
}

// AddThought はThoughtを追加する。同じ種別の件数が上限に達している場合はTHOUGHT_LIMITを返す。
func (s *Service) AddThought(ctx context.Context, date, text string, thoughtType model.ThoughtType) (model.Thought, SyncReport, error) {
	if strings.TrimSpace(text) == "" {
		return model.Thought{}, SyncReport{Date: date}, model.NewEmptyTextError()
	}
	if thoughtType == "" {
		thoughtType = model.ThoughtDaily
	}
	if !validThoughtType(thoughtType) {
		return model.Thought{}, SyncReport{Date: date}, model.NewInvalidRequestError("unknown thought type: " + string(thoughtType))
	}

	var created model.Thought
	_, report, err := s.mutateDay(ctx, date, func(day *model.DayData, now time.Time) (*dayWrites, error) {
		if s.config.ThoughtCap > 0 && countThoughts(day.Thoughts, thoughtType) >= s.config.ThoughtCap {
			return nil, model.NewThoughtLimitError(thoughtType, s.config.ThoughtCap)
		}
		id := s.ids.Next()
		created = model.Thought{
			ID:        &id,
			Text:      text,
			Type:      thoughtType,
			Date:      date,
			CreatedAt: now,
			UpdatedAt: now,
		}
		day.Thoughts = append(day.Thoughts, created)

		thought := created
		return &dayWrites{thoughts: func(ctx context.Context, ownerID string) error {
			_, err := s.thoughts.Create(ctx, ownerID, date, thought)
			return err
		}}, nil
	})
	return created, report, err
}

// ThoughtRef はThoughtの指定方法。IDを持たない旧データは位置で指定する。
type ThoughtRef struct {
	ID    *int64
	Index *int
}

// ParseThoughtRef は "123"（ID）または "idx-2"（位置）形式の文字列を解釈する。
func ParseThoughtRef(s string) (ThoughtRef, error) {
	if rest, ok := strings.CutPrefix(s, "idx-"); ok {
		i, err := strconv.Atoi(rest)
		if err != nil || i < 0 {
			return ThoughtRef{}, model.NewInvalidRequestError("invalid thought index: " + s)
		}
		return ThoughtRef{Index: &i}, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ThoughtRef{}, model.NewInvalidRequestError("invalid thought id: " + s)
	}
	return ThoughtRef{ID: &id}, nil
}

func (r ThoughtRef) String() string {
	if r.ID != nil {
		return strconv.FormatInt(*r.ID, 10)
	}
	if r.Index != nil {
		return "idx-" + strconv.Itoa(*r.Index)
	}
	return ""
}

// RemoveThought はIDまたは位置で指定したThoughtを削除する。IDのないThoughtがあっても失敗しない。
func (s *Service) RemoveThought(ctx context.Context, date string, ref ThoughtRef) (SyncReport, error) {
	_, report, err := s.mutateDay(ctx, date, func(day *model.DayData, _ time.Time) (*dayWrites, error) {
		i := thoughtIndex(day.Thoughts, ref)
		if i < 0 {
			return nil, model.NewThoughtNotFoundError(date, ref.String())
		}
		removed := day.Thoughts[i]
		day.Thoughts = slices.Delete(slices.Clone(day.Thoughts), i, i+1)

		if removed.ID != nil {
			id := *removed.ID
			return &dayWrites{thoughts: func(ctx context.Context, ownerID string) error {
				return s.thoughts.Delete(ctx, ownerID, date, id)
			}}, nil
		}
		return &dayWrites{thoughts: s.replaceThoughts(date, day.Thoughts)}, nil
	})
	return report, err
}

// EditThought はThoughtの本文と種別を変更する。種別を変える場合も件数上限を適用する。
func (s *Service) EditThought(ctx context.Context, date string, ref ThoughtRef, patch repository.ThoughtPatch) (model.Thought, SyncReport, error) {
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return model.Thought{}, SyncReport{Date: date}, model.NewEmptyTextError()
	}
	if patch.Type != nil && !validThoughtType(*patch.Type) {
		return model.Thought{}, SyncReport{Date: date}, model.NewInvalidRequestError("unknown thought type: " + string(*patch.Type))
	}

	var edited model.Thought
	_, report, err := s.mutateDay(ctx, date, func(day *model.DayData, now time.Time) (*dayWrites, error) {
		i := thoughtIndex(day.Thoughts, ref)
		if i < 0 {
			return nil, model.NewThoughtNotFoundError(date, ref.String())
		}
		t := &day.Thoughts[i]
		replaced := []string{"updated_at"}
		if patch.Type != nil && *patch.Type != t.Type {
			if s.config.ThoughtCap > 0 && countThoughts(day.Thoughts, *patch.Type) >= s.config.ThoughtCap {
				return nil, model.NewThoughtLimitError(*patch.Type, s.config.ThoughtCap)
			}
			t.Type = *patch.Type
			replaced = append(replaced, "type")
		}
		if patch.Text != nil {
			t.Text = *patch.Text
			replaced = append(replaced, "text")
		}
		t.UpdatedAt = now
		t.Extra = t.Extra.Without(replaced...)
		edited = *t

		if t.ID != nil {
			id := *t.ID
			return &dayWrites{thoughts: func(ctx context.Context, ownerID string) error {
				return s.thoughts.Update(ctx, ownerID, date, id, patch)
			}}, nil
		}
		return &dayWrites{thoughts: s.replaceThoughts(date, day.Thoughts)}, nil
	})
	return edited, report, err
}

// PatchDailyReport はDailyReportの指定フィールドのみ更新する。
// ネットワーク側にも同じパッチをUpsertするため、指定しなかったフィールドは上書きしない。
func (s *Service) PatchDailyReport(ctx context.Context, date string, patch model.DailyReportPatch) (model.DailyReport, SyncReport, error) {
	if err := patch.Validate(); err != nil {
		return model.DailyReport{}, SyncReport{Date: date}, err
	}

	day, report, err := s.mutateDay(ctx, date, func(day *model.DayData, now time.Time) (*dayWrites, error) {
		day.DailyReport = patch.Apply(day.DailyReport, now)
		day.DailyReport.Date = date
		return &dayWrites{report: func(ctx context.Context, ownerID string) error {
			_, err := s.reports.Upsert(ctx, ownerID, date, patch)
			return err
		}}, nil
	})
	return day.DailyReport, report, err
}

func (s *Service) updateTodo(date string, id int64, patch repository.TodoPatch) remoteWrite {
	return func(ctx context.Context, ownerID string) error {
		return s.todos.Update(ctx, ownerID, date, id, patch)
	}
}

func (s *Service) replaceThoughts(date string, thoughts []model.Thought) remoteWrite {
	thoughts = slices.Clone(thoughts)
	return func(ctx context.Context, ownerID string) error {
		return s.thoughts.ReplaceAllForDate(ctx, ownerID, date, thoughts)
	}
}

func thoughtIndex(thoughts []model.Thought, ref ThoughtRef) int {
	switch {
	case ref.ID != nil:
		return slices.IndexFunc(thoughts, func(t model.Thought) bool {
			return t.ID != nil && *t.ID == *ref.ID
		})
	case ref.Index != nil && *ref.Index < len(thoughts):
		return *ref.Index
	}
	return -1
}

func todoIndex(todos []model.Todo, id int64) int {
	return slices.IndexFunc(todos, func(t model.Todo) bool { return t.ID == id })
}

func countThoughts(thoughts []model.Thought, thoughtType model.ThoughtType) int {
	n := 0
	for _, t := range thoughts {
		if t.Type == thoughtType {
			n++
		}
	}
	return n
}

// Package services – TemplateStore
//
// A restaurant keeps one ordered duty list per shift kind. Admins edit a
// Draft in memory and Save it, which overwrites the stored list as a whole
// (last write wins). Checklists snapshot the list when they are seeded, so
// later edits never alter existing checklists.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
)

// Duty is one template entry.
type Duty struct {
	Title    string `json:"title"`
	Priority bool   `json:"priority"`
}

// Draft is an unsaved working copy of a duty list.
type Draft struct {
	duties []Duty
}

// NewDraft returns a draft holding a copy of duties.
func NewDraft(duties []Duty) *Draft {
	return &Draft{duties: append([]Duty(nil), duties...)}
}

// Duties returns a copy of the current list.
func (d *Draft) Duties() []Duty {
	return append([]Duty{}, d.duties...)
}

func (d *Draft) check(i int) error {
	if i < 0 || i >= len(d.duties) {
		return ErrIndexOutOfRange
	}
	return nil
}

// AddDuty appends a non-priority duty. Blank titles are ignored.
func (d *Draft) AddDuty(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	d.duties = append(d.duties, Duty{Title: title})
}

// RemoveDuty deletes the duty at i.
func (d *Draft) RemoveDuty(i int) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.duties = append(d.duties[:i], d.duties[i+1:]...)
	return nil
}

// UpdateTitle replaces the title at i. The text is kept as typed; Save
// rejects it if it is still blank.
func (d *Draft) UpdateTitle(i int, text string) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.duties[i].Title = text
	return nil
}

// SetPriority sets the priority flag at i.
func (d *Draft) SetPriority(i int, priority bool) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.duties[i].Priority = priority
	return nil
}

// MoveUp swaps the duty at i with its predecessor. The first entry stays put.
func (d *Draft) MoveUp(i int) error {
	if err := d.check(i); err != nil {
		return err
	}
	if i > 0 {
		d.duties[i-1], d.duties[i] = d.duties[i], d.duties[i-1]
	}
	return nil
}

// MoveDown swaps the duty at i with its successor. The last entry stays put.
func (d *Draft) MoveDown(i int) error {
	if err := d.check(i); err != nil {
		return err
	}
	if i < len(d.duties)-1 {
		d.duties[i+1], d.duties[i] = d.duties[i], d.duties[i+1]
	}
	return nil
}

// BulkReplace replaces the list with one non-priority duty per non-blank
// line of text.
func (d *Draft) BulkReplace(text string) {
	d.duties = d.duties[:0]
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		d.AddDuty(line)
	}
}

// EditOp is one Draft operation in a batch.
//
// Op is one of add, remove, update_title, set_priority, move_up, move_down.
type EditOp struct {
	Op       string `json:"op"       binding:"required"`
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Priority bool   `json:"priority"`
}

// ErrUnknownEditOp is returned for an EditOp with an unrecognized Op.
var ErrUnknownEditOp = errors.New("unknown edit op")

// Apply runs op against the draft.
func (d *Draft) Apply(op EditOp) error {
	switch op.Op {
	case "add":
		d.AddDuty(op.Title)
		return nil
	case "remove":
		return d.RemoveDuty(op.Index)
	case "update_title":
		return d.UpdateTitle(op.Index, op.Title)
	case "set_priority":
		return d.SetPriority(op.Index, op.Priority)
	case "move_up":
		return d.MoveUp(op.Index)
	case "move_down":
		return d.MoveDown(op.Index)
	}
	return fmt.Errorf("%w: %q", ErrUnknownEditOp, op.Op)
}

// TemplateRepo defines the persistence contract required by TemplateStore.
type TemplateRepo interface {
	ListDuties(ctx context.Context, db *gorm.DB, restaurantID string, shift domain.ShiftKind) ([]domain.DutyTemplate, error)
	ReplaceDuties(ctx context.Context, db *gorm.DB, restaurantID string, shift domain.ShiftKind, duties []domain.DutyTemplate) error
}

// TemplateStore reads and overwrites duty templates.
type TemplateStore struct {
	DB   *gorm.DB
	Repo TemplateRepo
}

// NewTemplateStore constructs a TemplateStore.
func NewTemplateStore(db *gorm.DB, r TemplateRepo) *TemplateStore {
	return &TemplateStore{DB: db, Repo: r}
}

// Load returns a draft of the stored list. Admin only.
func (s *TemplateStore) Load(ctx context.Context, p *Principal, restaurantID string, shift domain.ShiftKind) (*Draft, error) {
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	duties, err := s.duties(ctx, s.DB, restaurantID, shift)
	if err != nil {
		return nil, err
	}
	return NewDraft(duties), nil
}

// Save overwrites the stored list with duties. Admin only. Every title must
// be non-blank after trimming; titles are stored trimmed.
func (s *TemplateStore) Save(ctx context.Context, p *Principal, restaurantID string, shift domain.ShiftKind, duties []Duty) ([]Duty, error) {
	tr := otel.Tracer("services/TemplateStore")
	ctx, span := tr.Start(ctx, "Save",
		trace.WithAttributes(
			attribute.String("restaurant.id", restaurantID),
			attribute.String("shift", string(shift)),
			attribute.Int("duties", len(duties)),
		),
	)
	defer span.End()

	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	rows := make([]domain.DutyTemplate, len(duties))
	clean := make([]Duty, len(duties))
	for i, d := range duties {
		title := strings.TrimSpace(d.Title)
		if title == "" {
			return nil, fmt.Errorf("%w at index %d", ErrEmptyTitle, i)
		}
		rows[i] = domain.DutyTemplate{Title: title, Priority: d.Priority}
		clean[i] = Duty{Title: title, Priority: d.Priority}
	}

	if _, err := requireRestaurant(ctx, s.DB, restaurantID); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Repo.ReplaceDuties(ctx, tx, restaurantID, shift, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}
	return clean, nil
}

// Edit loads the stored list, applies ops in order, and saves the result.
// The first failing op aborts the batch without saving.
func (s *TemplateStore) Edit(ctx context.Context, p *Principal, restaurantID string, shift domain.ShiftKind, ops []EditOp) ([]Duty, error) {
	d, err := s.Load(ctx, p, restaurantID, shift)
	if err != nil {
		return nil, err
	}
	for i, op := range ops {
		if err := d.Apply(op); err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
	}
	return s.Save(ctx, p, restaurantID, shift, d.Duties())
}

// BulkReplace replaces the stored list with one duty per non-blank line.
func (s *TemplateStore) BulkReplace(ctx context.Context, p *Principal, restaurantID string, shift domain.ShiftKind, text string) ([]Duty, error) {
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	d := NewDraft(nil)
	d.BulkReplace(text)
	return s.Save(ctx, p, restaurantID, shift, d.Duties())
}

func (s *TemplateStore) duties(ctx context.Context, db *gorm.DB, restaurantID string, shift domain.ShiftKind) ([]Duty, error) {
	rows, err := s.Repo.ListDuties(ctx, db, restaurantID, shift)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	out := make([]Duty, len(rows))
	for i, r := range rows {
		out[i] = Duty{Title: r.Title, Priority: r.Priority}
	}
	return out, nil
}

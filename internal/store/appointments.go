package store

import (
	"context"

	"gorm.io/gorm"

	"clinic-app-server/internal/models"
)

// Appointments is the appointments collection client: CRUD plus composable
// queries over the backing database, with a change feed fed by every
// successful write.
type Appointments struct {
	db   *gorm.DB
	feed *Feed
}

// NewAppointments creates an appointments collection client over db.
func NewAppointments(db *gorm.DB, feed *Feed) *Appointments {
	if feed == nil {
		feed = NewFeed()
	}
	return &Appointments{db: db, feed: feed}
}

// List returns the appointments matching the query terms together with the
// total count of matches ignoring limit/offset.
func (s *Appointments) List(ctx context.Context, queries ...Query) ([]models.Appointment, int64, error) {
	var appointments []models.Appointment
	tx := Apply(s.db.WithContext(ctx).Model(&models.Appointment{}), queries)
	if err := tx.Find(&appointments).Error; err != nil {
		return nil, 0, err
	}

	var total int64
	countTx := ApplyFilters(s.db.WithContext(ctx).Model(&models.Appointment{}), queries)
	if err := countTx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	return appointments, total, nil
}

// Get fetches a single appointment by id. gorm.ErrRecordNotFound is
// returned unwrapped when the document does not exist.
func (s *Appointments) Get(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := s.db.WithContext(ctx).First(&appointment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &appointment, nil
}

// Create inserts the appointment and publishes a created event.
func (s *Appointments) Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	if err := s.db.WithContext(ctx).Create(appointment).Error; err != nil {
		return nil, err
	}
	s.feed.Publish(Event{Type: EventCreated, Payload: *appointment})
	return appointment, nil
}

// Update applies a partial field set to the appointment identified by id and
// publishes an updated event carrying the writer's semantic label. The write
// is a single statement; there is no partially applied field set on failure.
func (s *Appointments) Update(ctx context.Context, id string, changes map[string]interface{}, updateType string) (*models.Appointment, error) {
	tx := s.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Updates(changes)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.feed.Publish(Event{Type: EventUpdated, UpdateType: updateType, Payload: *updated})
	return updated, nil
}

// Delete removes the appointment and publishes a deleted event carrying the
// last known payload. Administrative use only; the lifecycle manager never
// deletes.
func (s *Appointments) Delete(ctx context.Context, id string) error {
	appointment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Appointment{}, "id = ?", id).Error; err != nil {
		return err
	}
	s.feed.Publish(Event{Type: EventDeleted, Payload: *appointment})
	return nil
}

// Subscribe registers a raw change-feed handler and returns its teardown.
func (s *Appointments) Subscribe(h Handler) func() {
	return s.feed.Subscribe(h)
}

package main

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/vitalbook/scheduling/internal/config"
	"github.com/vitalbook/scheduling/internal/db"
	"github.com/vitalbook/scheduling/internal/logging"
)

var timezones = []string{
	"America/New_York",
	"America/Los_Angeles",
	"America/Chicago",
	"Europe/London",
	"Europe/Berlin",
	"Asia/Kolkata",
	"Australia/Sydney",
	"UTC",
}

type serviceTemplate struct {
	name            string
	durationMinutes int
	maxParticipants int
}

var serviceCatalog = []serviceTemplate{
	{"Deep Tissue Massage", 60, 1},
	{"Swedish Massage", 90, 1},
	{"Acupuncture", 45, 1},
	{"Physiotherapy", 30, 1},
	{"Nutrition Consultation", 45, 1},
	{"Reiki Session", 75, 1},
	{"Yoga Class", 60, 12},
	{"Pilates Class", 50, 6},
	{"Guided Meditation", 30, 8},
	{"Breathwork Circle", 45, 10},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev", "seed")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "seed")
	log.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedPractitioners(context.Background(), pool, log, 100); err != nil {
		log.Fatal().Err(err).Msg("seed practitioners")
	}

	log.Info().Msg("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, count int) error {
	log.Info().Int("count", count).Msg("seeding practitioners")

	for i := 0; i < count; i++ {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		practitionerID := uuid.New()
		tz := timezones[gofakeit.Number(0, len(timezones)-1)]

		_, err = tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, timezone, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, practitionerID, gofakeit.Name(), tz)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO scheduling_policies (practitioner_id, buffer_time_minutes, advance_booking_hours, advance_booking_days, timezone)
			VALUES ($1, $2, $3, $4, $5)
		`, practitionerID,
			pick(0, 10, 15, 30),
			pick(12, 24, 48),
			pick(30, 60, 90),
			tz)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		scheduleID, err := seedDefaultSchedule(ctx, tx, practitionerID, tz)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		serviceIDs, err := seedServices(ctx, tx, practitionerID, scheduleID)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		if err := seedExceptions(ctx, tx, practitionerID, serviceIDs); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		if (i+1)%20 == 0 {
			log.Info().Int("done", i+1).Int("total", count).Msg("practitioners seeded")
		}
	}

	return nil
}

func seedDefaultSchedule(ctx context.Context, tx pgx.Tx, practitionerID uuid.UUID, tz string) (uuid.UUID, error) {
	scheduleID := uuid.New()

	_, err := tx.Exec(ctx, `
		INSERT INTO recurring_schedules (id, practitioner_id, name, timezone, is_default, is_active)
		VALUES ($1, $2, 'Standard Week', $3, true, true)
	`, scheduleID, practitionerID, tz)
	if err != nil {
		return uuid.Nil, err
	}

	// Mon-Fri, morning and afternoon blocks, Saturday mornings for some.
	lastWeekday := 4
	if gofakeit.Bool() {
		lastWeekday = 5
	}
	for weekday := 0; weekday <= lastWeekday; weekday++ {
		blocks := [][2]int{{9 * 60, 12 * 60}, {13 * 60, 17 * 60}}
		if weekday == 5 {
			blocks = [][2]int{{9 * 60, 13 * 60}}
		}
		for _, b := range blocks {
			_, err := tx.Exec(ctx, `
				INSERT INTO schedule_time_slots (id, schedule_id, weekday, start_minute, end_minute, is_active)
				VALUES ($1, $2, $3, $4, $5, true)
			`, uuid.New(), scheduleID, weekday, b[0], b[1])
			if err != nil {
				return uuid.Nil, err
			}
		}
	}

	return scheduleID, nil
}

func seedServices(ctx context.Context, tx pgx.Tx, practitionerID, scheduleID uuid.UUID) ([]uuid.UUID, error) {
	count := gofakeit.Number(1, 3)
	var ids []uuid.UUID

	for i := 0; i < count; i++ {
		tmpl := serviceCatalog[gofakeit.Number(0, len(serviceCatalog)-1)]
		serviceID := uuid.New()

		// A few services pin the default schedule explicitly rather than
		// relying on the fallback.
		var pinned *uuid.UUID
		if gofakeit.Number(1, 6) == 1 {
			pinned = &scheduleID
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, practitioner_id, name, duration_minutes, max_participants, schedule_id, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, true)
		`, serviceID, practitionerID, tmpl.name, tmpl.durationMinutes, tmpl.maxParticipants, pinned)
		if err != nil {
			return nil, err
		}
		ids = append(ids, serviceID)

		// Some services run on their own weekday hours.
		if gofakeit.Number(1, 5) == 1 {
			weekday := gofakeit.Number(0, 4)
			_, err := tx.Exec(ctx, `
				INSERT INTO service_schedules (id, practitioner_id, service_id, weekday, start_minute, end_minute, is_active)
				VALUES ($1, $2, $3, $4, $5, $6, true)
			`, uuid.New(), practitionerID, serviceID, weekday, 10*60, 14*60)
			if err != nil {
				return nil, err
			}
		}
	}

	return ids, nil
}

func seedExceptions(ctx context.Context, tx pgx.Tx, practitionerID uuid.UUID, serviceIDs []uuid.UUID) error {
	// Roughly a third of practitioners have an upcoming vacation.
	if gofakeit.Number(1, 3) == 1 {
		start := time.Now().AddDate(0, 0, gofakeit.Number(7, 60))
		end := start.AddDate(0, 0, gofakeit.Number(3, 14))
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_exceptions (id, practitioner_id, type, start_date, end_date, start_minute, end_minute, is_recurring, affects_all_services, service_ids)
			VALUES ($1, $2, 'vacation', $3, $4, NULL, NULL, false, true, '{}')
		`, uuid.New(), practitionerID, start.Format("2006-01-02"), end.Format("2006-01-02"))
		if err != nil {
			return err
		}
	}

	// A one-off midday block for some, scoped to a single service.
	if gofakeit.Number(1, 4) == 1 && len(serviceIDs) > 0 {
		date := time.Now().Format("2006-01-02")
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_exceptions (id, practitioner_id, type, start_date, end_date, start_minute, end_minute, is_recurring, affects_all_services, service_ids)
			VALUES ($1, $2, 'personal', $3, $3, $4, $5, false, false, $6)
		`, uuid.New(), practitionerID, date, 12*60, 13*60, []uuid.UUID{serviceIDs[0]})
		if err != nil {
			return err
		}
	}

	return nil
}

func pick(values ...int) int {
	return values[gofakeit.Number(0, len(values)-1)]
}

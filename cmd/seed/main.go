package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agroconnect/farm-scheduling/internal/db"
)

const (
	centerCount  = 5
	dayCount     = 14
	requestCount = 200
)

var intervals = [][2]string{
	{"09:00", "10:00"},
	{"10:00", "11:00"},
	{"11:00", "12:00"},
	{"14:00", "15:00"},
	{"15:00", "16:00"},
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedSlots(context.Background(), pool); err != nil {
		log.Fatalf("seed slots: %v", err)
	}
	if err := seedRequests(context.Background(), pool, requestCount); err != nil {
		log.Fatalf("seed requests: %v", err)
	}

	log.Println("seed complete")
}

func seedSlots(ctx context.Context, pool *pgxpool.Pool) error {
	log.Printf("seeding slot inventory for %d centers over %d days", centerCount, dayCount)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := time.Now()
	for center := 1; center <= centerCount; center++ {
		for day := 0; day < dayCount; day++ {
			date := today.AddDate(0, 0, day)
			for _, iv := range intervals {
				maxBookings := gofakeit.Number(1, 4)

				_, err := tx.Exec(ctx, `
					INSERT INTO time_slots (center_id, slot_date, start_time, end_time, max_bookings)
					VALUES ($1, $2, $3, $4, $5)
					ON CONFLICT DO NOTHING
				`, center, date.Format("2006-01-02"), iv[0], iv[1], maxBookings)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("slots seeded")
	return nil
}

func seedRequests(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d soil test requests", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := time.Now()
	for i := 0; i < count; i++ {
		farmerID := gofakeit.Number(1, 500)
		centerID := gofakeit.Number(1, centerCount)
		date := today.AddDate(0, 0, gofakeit.Number(1, dayCount-1))
		phone := gofakeit.Phone()
		iv := intervals[gofakeit.Number(0, len(intervals)-1)]
		slotLabel := fmt.Sprintf("%s-%s", iv[0], iv[1])
		note := gofakeit.Address().Address

		_, err := tx.Exec(ctx, `
			INSERT INTO soil_test_requests (farmer_id, center_id, preferred_date, preferred_slot, contact_phone, location_note)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, farmerID, centerID, date.Format("2006-01-02"), slotLabel, phone, note)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("requests seeded")
	return nil
}

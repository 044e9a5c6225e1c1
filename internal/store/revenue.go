package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/safar/beach-pdv/internal/models"
)

// Revenue reports count only orders in models.RevenueStatuses. Periods are
// calendar periods in the location carried by now, which must be UTC or an
// IANA zone name Postgres knows.

const wallClock = "2006-01-02 15:04:05"

type seriesRange struct {
	unit    string
	buckets int
	format  string
}

var (
	dailySeries   = seriesRange{unit: "day", buckets: 30, format: "YYYY-MM-DD"}
	monthlySeries = seriesRange{unit: "month", buckets: 12, format: "YYYY-MM"}
	yearlySeries  = seriesRange{unit: "year", buckets: 5, format: "YYYY"}
)

func revenueStatuses() any {
	return pq.Array(statusStrings(models.RevenueStatuses))
}

func RevenueSummary(ctx context.Context, db *sql.DB, sellerID string, now time.Time) (*models.RevenueSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(total) FILTER (WHERE local >= date_trunc('day', $3::timestamp)), 0),
			COALESCE(SUM(total) FILTER (WHERE local >= date_trunc('month', $3::timestamp)), 0),
			COALESCE(SUM(total), 0)
		FROM (
			SELECT total, created_at AT TIME ZONE $4 AS local
			FROM orders
			WHERE seller_id = $1 AND status = ANY($2)
		) o
		WHERE local >= date_trunc('year', $3::timestamp)`

	summary := &models.RevenueSummary{}
	err := db.QueryRowContext(ctx, query,
		sellerID, revenueStatuses(), now.Format(wallClock), now.Location().String()).
		Scan(&summary.Today, &summary.ThisMonth, &summary.ThisYear)
	if err != nil {
		return nil, fmt.Errorf("revenue summary: %w", err)
	}

	return summary, nil
}

// DailyRevenue covers the last 30 days, today included, oldest first.
func DailyRevenue(ctx context.Context, db *sql.DB, sellerID string, now time.Time) ([]models.RevenuePoint, error) {
	return revenueSeries(ctx, db, sellerID, now, dailySeries)
}

// MonthlyRevenue covers the last 12 months.
func MonthlyRevenue(ctx context.Context, db *sql.DB, sellerID string, now time.Time) ([]models.RevenuePoint, error) {
	return revenueSeries(ctx, db, sellerID, now, monthlySeries)
}

// YearlyRevenue covers the last 5 years.
func YearlyRevenue(ctx context.Context, db *sql.DB, sellerID string, now time.Time) ([]models.RevenuePoint, error) {
	return revenueSeries(ctx, db, sellerID, now, yearlySeries)
}

// revenueSeries returns one point per bucket, zero-filled.
func revenueSeries(ctx context.Context, db *sql.DB, sellerID string, now time.Time, series seriesRange) ([]models.RevenuePoint, error) {
	query := `
		SELECT to_char(b, $5), COALESCE(SUM(o.total), 0)
		FROM generate_series(
			date_trunc($4, $3::timestamp) - ($6::int - 1) * ('1 ' || $4)::interval,
			date_trunc($4, $3::timestamp),
			('1 ' || $4)::interval
		) AS b
		LEFT JOIN orders o
			ON o.seller_id = $1
			AND o.status = ANY($2)
			AND date_trunc($4, o.created_at AT TIME ZONE $7) = b
		GROUP BY b
		ORDER BY b`

	rows, err := db.QueryContext(ctx, query,
		sellerID, revenueStatuses(), now.Format(wallClock), series.unit, series.format, series.buckets,
		now.Location().String())
	if err != nil {
		return nil, fmt.Errorf("revenue by %s: %w", series.unit, err)
	}
	defer rows.Close()

	points := make([]models.RevenuePoint, 0, series.buckets)
	for rows.Next() {
		var p models.RevenuePoint
		if err := rows.Scan(&p.Period, &p.Total); err != nil {
			return nil, fmt.Errorf("scan revenue point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return points, nil
}

// DailyOrders counts today's revenue orders and sums them.
func DailyOrders(ctx context.Context, db *sql.DB, sellerID string, now time.Time) (*models.DailyOrders, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE seller_id = $1
		  AND status = ANY($2)
		  AND date_trunc('day', created_at AT TIME ZONE $4) = date_trunc('day', $3::timestamp)`

	daily := &models.DailyOrders{}
	err := db.QueryRowContext(ctx, query,
		sellerID, revenueStatuses(), now.Format(wallClock), now.Location().String()).
		Scan(&daily.Count, &daily.Total)
	if err != nil {
		return nil, fmt.Errorf("daily orders: %w", err)
	}

	return daily, nil
}

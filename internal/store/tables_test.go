package store

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(sellerID string, quantity int) func(int) []models.Table {
	return func(highest int) []models.Table {
		tables := make([]models.Table, 0, quantity)
		for i := 1; i <= quantity; i++ {
			tables = append(tables, models.Table{
				ID:        uuid.NewString(),
				Number:    highest + i,
				Status:    models.TableStatusAvailable,
				SellerID:  sellerID,
				CreatedAt: time.Now(),
				Version:   1,
			})
		}
		return tables
	}
}

func TestCreateTablesNumbered(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := New(db, nil)

	first, err := s.CreateTablesNumbered(ctx, "seller", build("seller", 3))
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := s.CreateTablesNumbered(ctx, "seller", build("seller", 2))
	require.NoError(t, err)
	assert.Equal(t, 4, second[0].Number)
	assert.Equal(t, 5, second[1].Number)

	other, err := s.CreateTablesNumbered(ctx, "another", build("another", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, other[0].Number)
}

func TestCreateTablesNumberedConcurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := New(db, nil)

	const workers = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateTablesNumbered(ctx, "seller", build("seller", 2))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	tables, err := ListTablesBySeller(ctx, db, "seller")
	require.NoError(t, err)
	require.Len(t, tables, 2*workers)

	numbers := make([]int, 0, len(tables))
	for _, tb := range tables {
		numbers = append(numbers, tb.Number)
	}
	sort.Ints(numbers)
	for i, n := range numbers {
		assert.Equal(t, i+1, n)
	}
}

func TestCreateTableDuplicateNumber(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seedTable(t, db, "seller", 1)
	_, err := CreateTable(ctx, db, "seller", "", 1)
	assert.ErrorIs(t, err, database.ErrDuplicateTableNumber)

	_, err = CreateTable(ctx, db, "another", "", 1)
	assert.NoError(t, err)
}

func TestSaveTableOccupancy(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	table := seedTable(t, db, "seller", 1)
	now := time.Now().UTC().Truncate(time.Microsecond)

	table.Status = models.TableStatusOccupied
	table.CustomerName = "Carla"
	table.CustomerPhone = "71 98888-1234"
	table.OccupiedAt = &now

	saved, err := SaveTableOccupancy(ctx, db, table)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusOccupied, saved.Status)
	assert.Equal(t, "Carla", saved.CustomerName)
	assert.Equal(t, "71 98888-1234", saved.CustomerPhone)
	require.NotNil(t, saved.OccupiedAt)
	assert.True(t, now.Equal(*saved.OccupiedAt))
	assert.Equal(t, 2, saved.Version)

	available, err := ListAvailableTablesBySeller(ctx, db, "seller")
	require.NoError(t, err)
	assert.Empty(t, available)

	// the stale copy still carries version 1
	table.Status = models.TableStatusAvailable
	_, err = SaveTableOccupancy(ctx, db, table)
	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)

	saved.Status = models.TableStatusAvailable
	saved.OccupiedAt = nil
	saved.CustomerName = ""
	freed, err := SaveTableOccupancy(ctx, db, saved)
	require.NoError(t, err)
	assert.Nil(t, freed.OccupiedAt)

	missing := *saved
	missing.ID = "missing"
	_, err = SaveTableOccupancy(ctx, db, &missing)
	assert.ErrorIs(t, err, database.ErrTableNotFound)
}

func TestDeleteTable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	empty := seedTable(t, db, "seller", 1)
	used := seedTable(t, db, "seller", 2)
	seedOrder(t, db, "o1", used, "", models.OrderStatusArchived, time.Now(), item("coco", "1", 1))

	require.NoError(t, DeleteTable(ctx, db, empty.ID))
	assert.ErrorIs(t, DeleteTable(ctx, db, empty.ID), database.ErrTableNotFound)
	assert.ErrorIs(t, DeleteTable(ctx, db, used.ID), ErrTableInUse)
}

package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/horde/internal/genetic"
	"github.com/udisondev/horde/internal/model"
)

// GenerationRepository stores evolved gene pools.
type GenerationRepository struct {
	pool *pgxpool.Pool
}

// NewGenerationRepository creates a new generation repository
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepository {
	return &GenerationRepository{pool: pool}
}

// SaveGeneration writes one generation and its pool members in a single transaction.
// Saving the same (session, generation) twice replaces the earlier row.
func (r *GenerationRepository) SaveGeneration(ctx context.Context, sessionID uuid.UUID, gen genetic.Generation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for generation %d: %w", gen.Number, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "sessionID", sessionID, "generation", gen.Number, "error", err)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO gene_generations
			(session_id, generation, sample_count, best_health, best_damage, best_speed,
			 best_fitness, dominant_trait, evolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id, generation) DO UPDATE SET
			sample_count   = EXCLUDED.sample_count,
			best_health    = EXCLUDED.best_health,
			best_damage    = EXCLUDED.best_damage,
			best_speed     = EXCLUDED.best_speed,
			best_fitness   = EXCLUDED.best_fitness,
			dominant_trait = EXCLUDED.dominant_trait,
			evolved_at     = EXCLUDED.evolved_at`,
		sessionID, gen.Number, gen.SampleCount,
		gen.Best.Genes.Health, gen.Best.Genes.Damage, gen.Best.Genes.Speed,
		gen.BestFitness, gen.DominantTrait.String(), gen.EvolvedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting generation %d: %w", gen.Number, err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM gene_pool_members WHERE session_id = $1 AND generation = $2`,
		sessionID, gen.Number,
	); err != nil {
		return fmt.Errorf("clearing members of generation %d: %w", gen.Number, err)
	}

	rows := make([][]any, 0, len(gen.Members))
	for slot, g := range gen.Members {
		rows = append(rows, []any{sessionID, gen.Number, slot, g.Health, g.Damage, g.Speed})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"gene_pool_members"},
		[]string{"session_id", "generation", "slot", "health", "damage", "speed"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copying members of generation %d: %w", gen.Number, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit generation %d: %w", gen.Number, err)
	}

	slog.Debug("generation saved",
		"sessionID", sessionID,
		"generation", gen.Number,
		"members", len(gen.Members))
	return nil
}

// LoadLatestPool returns the members of the most recently evolved generation
// across all sessions. found is false on an empty table.
func (r *GenerationRepository) LoadLatestPool(ctx context.Context) (generation int, members []model.EnemyGenes, found bool, err error) {
	var sessionID uuid.UUID
	err = r.pool.QueryRow(ctx, `
		SELECT session_id, generation
		FROM gene_generations
		ORDER BY evolved_at DESC, generation DESC
		LIMIT 1`,
	).Scan(&sessionID, &generation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, false, nil
		}
		return 0, nil, false, fmt.Errorf("querying latest generation: %w", err)
	}

	members, err = r.loadMembers(ctx, sessionID, generation)
	if err != nil {
		return 0, nil, false, err
	}
	return generation, members, true, nil
}

// ListGenerations returns every stored generation of a session, oldest first.
func (r *GenerationRepository) ListGenerations(ctx context.Context, sessionID uuid.UUID) ([]genetic.Generation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT generation, sample_count, best_health, best_damage, best_speed,
		       best_fitness, dominant_trait, evolved_at
		FROM gene_generations
		WHERE session_id = $1
		ORDER BY generation`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing generations of %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []genetic.Generation
	for rows.Next() {
		var (
			gen   genetic.Generation
			trait string
		)
		if err := rows.Scan(
			&gen.Number, &gen.SampleCount,
			&gen.Best.Genes.Health, &gen.Best.Genes.Damage, &gen.Best.Genes.Speed,
			&gen.BestFitness, &trait, &gen.EvolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning generation row: %w", err)
		}
		if t, ok := model.ParseTrait(trait); ok {
			gen.DominantTrait = t
		} else {
			slog.Warn("unknown dominant trait in storage", "trait", trait, "generation", gen.Number)
		}
		out = append(out, gen)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating generation rows: %w", err)
	}

	for i := range out {
		members, err := r.loadMembers(ctx, sessionID, out[i].Number)
		if err != nil {
			return nil, err
		}
		out[i].Members = members
	}
	return out, nil
}

func (r *GenerationRepository) loadMembers(ctx context.Context, sessionID uuid.UUID, generation int) ([]model.EnemyGenes, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT health, damage, speed
		FROM gene_pool_members
		WHERE session_id = $1 AND generation = $2
		ORDER BY slot`,
		sessionID, generation,
	)
	if err != nil {
		return nil, fmt.Errorf("loading members of generation %d: %w", generation, err)
	}
	defer rows.Close()

	members := make([]model.EnemyGenes, 0, 16)
	for rows.Next() {
		var g model.EnemyGenes
		if err := rows.Scan(&g.Health, &g.Damage, &g.Speed); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, nil
}

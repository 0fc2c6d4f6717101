package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/abhisek/cognify/internal/conceptgraph"
)

// ConceptRepo persists the concept graph.
type ConceptRepo struct {
	db *sql.DB
}

// Save writes the whole graph in one transaction: concept metadata is
// upserted and the edge set replaced.
func (r *ConceptRepo) Save(ctx context.Context, g *conceptgraph.Graph) error {
	now := formatTime(time.Now())
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM concept_edges`); err != nil {
			return fmt.Errorf("clear edges: %w", err)
		}
		for i, c := range g.Concepts() {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO concepts (id, name, subject, topic, position, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					name = excluded.name,
					subject = excluded.subject,
					topic = excluded.topic,
					position = excluded.position,
					updated_at = excluded.updated_at`,
				c.ID, c.Name, c.Subject, c.Topic, i, now)
			if err != nil {
				return fmt.Errorf("upsert concept %q: %w", c.ID, err)
			}
		}
		pos := make(map[string]int)
		for _, e := range g.Edges() {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO concept_edges (concept_id, prereq_id, position) VALUES (?, ?, ?)`,
				e.ConceptID, e.PrereqID, pos[e.ConceptID])
			if err != nil {
				return fmt.Errorf("insert edge %s -> %s: %w", e.ConceptID, e.PrereqID, err)
			}
			pos[e.ConceptID]++
		}
		return nil
	})
}

// Load rebuilds the stored graph. Returns (nil, nil) when no concepts are
// stored.
func (r *ConceptRepo) Load(ctx context.Context) (*conceptgraph.Graph, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, subject, topic FROM concepts ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query concepts: %w", err)
	}
	var concepts []conceptgraph.Concept
	for rows.Next() {
		var c conceptgraph.Concept
		if err := rows.Scan(&c.ID, &c.Name, &c.Subject, &c.Topic); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		concepts = append(concepts, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query concepts: %w", err)
	}
	if len(concepts) == 0 {
		return nil, nil
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT e.concept_id, e.prereq_id FROM concept_edges e
		JOIN concepts c ON c.id = e.concept_id
		ORDER BY c.position, e.position`)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()
	var edges []conceptgraph.Edge
	for rows.Next() {
		var e conceptgraph.Edge
		if err := rows.Scan(&e.ConceptID, &e.PrereqID); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}

	g, err := conceptgraph.Build(concepts, edges)
	if err != nil {
		return nil, fmt.Errorf("rebuild stored graph: %w", err)
	}
	return g, nil
}

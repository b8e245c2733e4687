package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/nodeflow/internal/domain"
)

// pgUniqueViolation — код ошибки PostgreSQL при нарушении уникальности.
const pgUniqueViolation = "23505"

// customNodeColumns — общий список колонок для SELECT.
const customNodeColumns = `
	id, name, slug, display_name, description,
	COALESCE(icon, ''), COALESCE(icon_url, ''), category, tags, status,
	COALESCE(version, ''), COALESCE(latest_version, ''),
	COALESCE(min_sdk_version, ''), COALESCE(max_sdk_version, ''),
	COALESCE(min_app_version, ''), COALESCE(max_app_version, ''),
	published_at, created_at
`

// CustomNodeRepo — репозиторий пользовательских нод (таблица custom_nodes).
//
// Каталог читает опубликованные записи; Create и UpdateStatus
// обслуживают модерацию через API.
type CustomNodeRepo struct {
	pool *pgxpool.Pool
}

// NewCustomNodeRepo создаёт новый CustomNodeRepo.
func NewCustomNodeRepo(pool *pgxpool.Pool) *CustomNodeRepo {
	return &CustomNodeRepo{pool: pool}
}

// Create сохраняет пользовательскую ноду.
// Пустой ID генерируется. Повтор slug — ErrAlreadyExists.
func (r *CustomNodeRepo) Create(ctx context.Context, n *domain.CustomNode) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = domain.CustomNodeStatusDraft
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}

	query := `
		INSERT INTO custom_nodes (
			id, name, slug, display_name, description,
			icon, icon_url, category, tags, status,
			version, latest_version,
			min_sdk_version, max_sdk_version, min_app_version, max_app_version,
			published_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10,
			NULLIF($11, ''), NULLIF($12, ''),
			NULLIF($13, ''), NULLIF($14, ''), NULLIF($15, ''), NULLIF($16, ''),
			$17, NOW())
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		n.ID,
		n.Name,
		n.Key(),
		n.DisplayName,
		n.Description,
		n.Icon,
		n.IconURL,
		n.Category,
		n.Tags,
		n.Status,
		n.Version,
		n.LatestVersion,
		n.MinSDKVersion,
		n.MaxSDKVersion,
		n.MinAppVersion,
		n.MaxAppVersion,
		n.PublishedAt,
	).Scan(&n.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert custom node: %w", err)
	}
	return nil
}

// GetBySlug возвращает ноду по slug.
func (r *CustomNodeRepo) GetBySlug(ctx context.Context, slug string) (*domain.CustomNode, error) {
	query := `SELECT ` + customNodeColumns + ` FROM custom_nodes WHERE slug = $1`

	n, err := scanCustomNode(r.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get custom node by slug: %w", err)
	}
	return n, nil
}

// ListPublished возвращает ноды, видимые в каталоге
// (опубликованные и устаревшие), в порядке публикации.
func (r *CustomNodeRepo) ListPublished(ctx context.Context) ([]domain.CustomNode, error) {
	query := `
		SELECT ` + customNodeColumns + `
		FROM custom_nodes
		WHERE status IN ($1, $2)
		ORDER BY published_at NULLS LAST, created_at
	`
	rows, err := r.pool.Query(ctx, query, domain.CustomNodeStatusPublished, domain.CustomNodeStatusDeprecated)
	if err != nil {
		return nil, fmt.Errorf("list custom nodes: %w", err)
	}
	defer rows.Close()

	nodes := []domain.CustomNode{}
	for rows.Next() {
		n, err := scanCustomNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan custom node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// UpdateStatus переводит ноду в новый статус.
// Переход допустим только из статусов status.SourcesOf(), иначе ErrInvalidState.
// При первой публикации выставляется published_at.
func (r *CustomNodeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CustomNodeStatus) error {
	query := `
		UPDATE custom_nodes
		SET status = $2,
		    published_at = CASE WHEN $2 = 'published' AND published_at IS NULL THEN NOW() ELSE published_at END
		WHERE id = $1 AND status = ANY($3)
	`
	result, err := r.pool.Exec(ctx, query, id, status, status.SourcesOf())
	if err != nil {
		return fmt.Errorf("update custom node status: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM custom_nodes WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check custom node: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidState
}

func scanCustomNode(row pgx.Row) (*domain.CustomNode, error) {
	var n domain.CustomNode
	err := row.Scan(
		&n.ID,
		&n.Name,
		&n.Slug,
		&n.DisplayName,
		&n.Description,
		&n.Icon,
		&n.IconURL,
		&n.Category,
		&n.Tags,
		&n.Status,
		&n.Version,
		&n.LatestVersion,
		&n.MinSDKVersion,
		&n.MaxSDKVersion,
		&n.MinAppVersion,
		&n.MaxAppVersion,
		&n.PublishedAt,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

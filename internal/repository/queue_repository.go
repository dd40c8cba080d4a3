package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/feedqueue-api/internal/models"
)

type QueueRepository interface {
	GetByID(ctx context.Context, username string, id int64) (*models.Queue, error)
	GetByIdent(ctx context.Context, username, ident string) (*models.Queue, error)
	GetByUsername(ctx context.Context, username string) ([]*models.Queue, error)
	Create(ctx context.Context, queue *models.Queue) (int64, error)
	Update(ctx context.Context, queue *models.Queue) error
	UpdateAttribute(ctx context.Context, username string, id int64, attr models.QueueAttribute, value *string) error
	UpdateAuthRequirement(ctx context.Context, username string, id int64, required bool) error
	UpdateExportConfig(ctx context.Context, username string, id int64, cfg *models.ExportConfig) error
	UpdateLastDeployed(ctx context.Context, username string, id int64, at time.Time, transport string) error
	Remove(ctx context.Context, username string, id int64) error
}

type queueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) QueueRepository {
	return &queueRepository{db: db}
}

const queueColumns = `id, ident, title, description, generator, transport_ident, username, export_config,
	copyright, language, queue_img_src, is_authenticated, last_deployed, deployed_transport, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueue(row rowScanner) (*models.Queue, error) {
	var q models.Queue
	var exportConfig []byte
	err := row.Scan(&q.ID, &q.Ident, &q.Title, &q.Description, &q.Generator, &q.TransportIdent, &q.Username,
		&exportConfig, &q.Copyright, &q.Language, &q.QueueImgSrc, &q.IsAuthenticated, &q.LastDeployed, &q.DeployedTransport, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	if exportConfig != nil {
		q.ExportConfig = &models.ExportConfig{}
		if err := json.Unmarshal(exportConfig, q.ExportConfig); err != nil {
			return nil, fmt.Errorf("decode export config of queue %d: %w", q.ID, err)
		}
	}
	return &q, nil
}

func encodeExportConfig(cfg *models.ExportConfig) (any, error) {
	if cfg == nil {
		return nil, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return nullableJSON(data), nil
}

func (r *queueRepository) GetByID(ctx context.Context, username string, id int64) (*models.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_definitions WHERE id = $1 AND username = $2`
	q, err := scanQueue(conn(ctx, r.db).QueryRowContext(ctx, query, id, username))
	if err != nil {
		err = translate(err)
		if err != ErrNotFound {
			slog.Info(err.Error(), "queueId", id)
		}
		return nil, err
	}
	return q, nil
}

func (r *queueRepository) GetByIdent(ctx context.Context, username, ident string) (*models.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_definitions WHERE ident = $1 AND username = $2`
	q, err := scanQueue(conn(ctx, r.db).QueryRowContext(ctx, query, ident, username))
	if err != nil {
		err = translate(err)
		if err != ErrNotFound {
			slog.Info(err.Error(), "ident", ident)
		}
		return nil, err
	}
	return q, nil
}

func (r *queueRepository) GetByUsername(ctx context.Context, username string) ([]*models.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_definitions WHERE username = $1 ORDER BY id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, username)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	queues := []*models.Queue{}
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		queues = append(queues, q)
	}
	return queues, rows.Err()
}

func (r *queueRepository) Create(ctx context.Context, q *models.Queue) (int64, error) {
	query := `
		INSERT INTO queue_definitions (ident, title, description, generator, transport_ident, username,
			export_config, copyright, language, queue_img_src, is_authenticated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	exportConfig, err := encodeExportConfig(q.ExportConfig)
	if err != nil {
		return 0, err
	}

	var id int64
	err = conn(ctx, r.db).QueryRowContext(ctx, query, q.Ident, q.Title, q.Description, q.Generator, q.TransportIdent,
		q.Username, exportConfig, q.Copyright, q.Language, q.QueueImgSrc, q.IsAuthenticated).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translate(err)
	}
	return id, nil
}

func (r *queueRepository) Update(ctx context.Context, q *models.Queue) error {
	query := `
		UPDATE queue_definitions
		SET ident = $1,
			title = $2,
			description = $3,
			generator = $4,
			transport_ident = $5,
			export_config = $6,
			copyright = $7,
			language = $8,
			queue_img_src = $9,
			is_authenticated = $10
		WHERE id = $11 AND username = $12
	`
	exportConfig, err := encodeExportConfig(q.ExportConfig)
	if err != nil {
		return err
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, query, q.Ident, q.Title, q.Description, q.Generator, q.TransportIdent,
		exportConfig, q.Copyright, q.Language, q.QueueImgSrc, q.IsAuthenticated, q.ID, q.Username)
	if err != nil {
		slog.Info(err.Error())
		return translate(err)
	}
	return requireAffected(res)
}

func (r *queueRepository) UpdateAttribute(ctx context.Context, username string, id int64, attr models.QueueAttribute, value *string) error {
	switch attr {
	case models.QueueIdent, models.QueueTitle, models.QueueDescription, models.QueueGenerator,
		models.QueueTransport, models.QueueCopyright, models.QueueLanguage, models.QueueImgSrc:
	default:
		return fmt.Errorf("unknown queue attribute %q", attr)
	}
	query := fmt.Sprintf(`UPDATE queue_definitions SET %s = $1 WHERE id = $2 AND username = $3`, attr)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, value, id, username)
	if err != nil {
		slog.Info(err.Error(), "attribute", string(attr))
		return translate(err)
	}
	return requireAffected(res)
}

func (r *queueRepository) UpdateAuthRequirement(ctx context.Context, username string, id int64, required bool) error {
	query := `UPDATE queue_definitions SET is_authenticated = $1 WHERE id = $2 AND username = $3`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, required, id, username)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireAffected(res)
}

func (r *queueRepository) UpdateExportConfig(ctx context.Context, username string, id int64, cfg *models.ExportConfig) error {
	exportConfig, err := encodeExportConfig(cfg)
	if err != nil {
		return err
	}
	query := `UPDATE queue_definitions SET export_config = $1 WHERE id = $2 AND username = $3`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, exportConfig, id, username)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireAffected(res)
}

func (r *queueRepository) UpdateLastDeployed(ctx context.Context, username string, id int64, at time.Time, transport string) error {
	query := `UPDATE queue_definitions SET last_deployed = $1, deployed_transport = $2 WHERE id = $3 AND username = $4`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, at, transport, id, username)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireAffected(res)
}

func (r *queueRepository) Remove(ctx context.Context, username string, id int64) error {
	query := `DELETE FROM queue_definitions WHERE id = $1 AND username = $2`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, username)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireAffected(res)
}

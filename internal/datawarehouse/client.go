// Package datawarehouse provides read-only connectivity to the legacy
// accounting system, an MS SQL Server instance that still holds historical
// invoices from before the LIMS went live. It is optional: when disabled or
// unreachable, the API serves everything except the legacy figures.
package datawarehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/config"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	defaultHealthCheckTimeout = 5 * time.Second
)

// Client provides read-only access to the legacy accounting database.
type Client struct {
	db           *sql.DB
	config       *config.WarehouseConfig
	logger       *zap.Logger
	queryTimeout time.Duration
}

// HealthStatus represents the health check result for the warehouse connection
type HealthStatus struct {
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
	Open    int           `json:"open_connections"`
	InUse   int           `json:"in_use"`
	Idle    int           `json:"idle"`
}

// InvoiceSummary aggregates legacy invoices for the finance dashboard.
type InvoiceSummary struct {
	InvoiceCount      int64  `json:"invoiceCount"`
	OutstandingAmount string `json:"outstandingAmount"`
}

// NewClient creates a warehouse client. Returns nil (and no error) when the
// warehouse is disabled or not configured; callers must handle a nil client.
func NewClient(cfg *config.WarehouseConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("legacy warehouse connection disabled")
		return nil, nil
	}
	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("legacy warehouse enabled but missing credentials, skipping connection")
		return nil, nil
	}

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	var db *sql.DB
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		db, err = sql.Open("sqlserver", connStr)
		if err == nil {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)

			pingCtx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				logger.Info("legacy warehouse connection established",
					zap.Int("attempts_taken", attempt))
				return &Client{
					db:           db,
					config:       cfg,
					logger:       logger,
					queryTimeout: time.Duration(cfg.QueryTimeout) * time.Second,
				}, nil
			}
			_ = db.Close()
		}

		logger.Warn("legacy warehouse connection attempt failed",
			zap.Error(err),
			zap.Int("attempt", attempt))
		if attempt < defaultMaxRetries {
			time.Sleep(backoff)
			backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
		}
	}

	return nil, fmt.Errorf("failed to connect to legacy warehouse after %d attempts: %w", defaultMaxRetries, err)
}

// buildConnectionString constructs a SQL Server connection string.
// URL format expected: host:port/database or host:port.
func buildConnectionString(cfg *config.WarehouseConfig) (string, error) {
	urlParts := strings.SplitN(cfg.URL, "/", 2)
	hostPort := urlParts[0]
	database := ""
	if len(urlParts) > 1 {
		database = urlParts[1]
	}

	hostParts := strings.SplitN(hostPort, ":", 2)
	host := hostParts[0]
	port := "1433"
	if len(hostParts) > 1 {
		port = hostParts[1]
	}

	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("TrustServerCertificate", "false")
	query.Add("connection timeout", "30")
	if database != "" {
		query.Add("database", database)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", host, port),
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}

// Close gracefully closes the warehouse connection.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close warehouse connection: %w", err)
	}
	return nil
}

// HealthCheck pings the warehouse and reports pool statistics.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil || c.db == nil {
		return &HealthStatus{Status: "disabled"}
	}

	start := time.Now()
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	stats := c.db.Stats()
	status := &HealthStatus{
		Latency: latency,
		Open:    stats.OpenConnections,
		InUse:   stats.InUse,
		Idle:    stats.Idle,
	}
	if err != nil {
		c.logger.Warn("legacy warehouse health check failed",
			zap.Error(err),
			zap.Duration("latency", latency))
		status.Status = "unhealthy"
		status.Error = err.Error()
	} else {
		status.Status = "healthy"
	}
	return status
}

// GetInvoiceSummary aggregates open invoices from the legacy accounting
// tables for the finance dashboard.
func (c *Client) GetInvoiceSummary(ctx context.Context) (*InvoiceSummary, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("warehouse not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	const query = `
		SELECT COUNT(*) AS invoice_count,
		       COALESCE(SUM(amount - paid_amount), 0) AS outstanding
		FROM dbo.invoices
		WHERE status <> 'settled'`

	var summary InvoiceSummary
	var outstanding float64
	row := c.db.QueryRowContext(ctx, query)
	if err := row.Scan(&summary.InvoiceCount, &outstanding); err != nil {
		return nil, fmt.Errorf("failed to query legacy invoices: %w", err)
	}
	summary.OutstandingAmount = fmt.Sprintf("%.2f", outstanding)
	return &summary, nil
}

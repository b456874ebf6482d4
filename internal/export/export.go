// Package export renders the administrator's request list as CSV and
// publishes it to object storage.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"part-request-portal-api-server/internal/models"

	"go.uber.org/zap"
)

const ContentType = "text/csv"

var header = []string{
	"id", "osNumber", "costCenter", "reservation", "registrationNumber",
	"requesterName", "requestDate", "status",
	"itemId", "quantity", "material", "equipment", "equipmentOs", "application", "location",
}

// Render writes one row per item. Requests keep their given order.
func Render(w io.Writer, records []models.PartRequest) (rows int, err error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	for _, r := range records {
		date := r.RequestDate.UTC().Format(models.ISOTimeLayout)
		for _, it := range r.Items {
			if err := cw.Write([]string{
				r.ID, r.OSNumber, r.CostCenter, r.Reservation, r.RegistrationNumber,
				r.RequesterName, date, string(r.Status),
				it.ID, strconv.Itoa(it.Quantity), it.Material, it.Equipment, it.EquipmentOS, it.Application, it.Location,
			}); err != nil {
				return rows, err
			}
			rows++
		}
	}
	cw.Flush()
	return rows, cw.Error()
}

type Uploader interface {
	Upload(ctx context.Context, body io.Reader, objectKey, contentType string) (string, error)
}

type Result struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Rows int    `json:"rows"`
}

type Exporter struct {
	uploader Uploader
	prefix   string
	logger   *zap.Logger
	now      func() time.Time
}

func NewExporter(uploader Uploader, prefix string, logger *zap.Logger) *Exporter {
	if prefix == "" {
		prefix = "exports"
	}
	return &Exporter{uploader: uploader, prefix: prefix, logger: logger, now: time.Now}
}

// Export renders records and uploads them under a timestamped key.
func (e *Exporter) Export(ctx context.Context, records []models.PartRequest) (Result, error) {
	var buf bytes.Buffer
	rows, err := Render(&buf, records)
	if err != nil {
		return Result{}, fmt.Errorf("render csv: %w", err)
	}

	key := fmt.Sprintf("%s/part-requests-%s.csv", e.prefix, e.now().UTC().Format("20060102T150405Z"))
	url, err := e.uploader.Upload(ctx, &buf, key, ContentType)
	if err != nil {
		return Result{}, err
	}
	e.logger.Info("Part requests exported", zap.String("key", key), zap.Int("rows", rows))
	return Result{Key: key, URL: url, Rows: rows}, nil
}

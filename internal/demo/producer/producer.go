package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fininsight/fininsight/internal/storage"
)

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service uploads synthetic financial workbooks to the object store and asks
// the API to ingest each one, exercising the whole blob-to-table path.
type Service struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	blobs     storage.ObjectStore
	generator *Generator
	batchID   int64
	sequence  int
	now       func() time.Time
}

type ingestAPIRequest struct {
	ContainerName string `json:"container_name"`
	BlobName      string `json:"blob_name"`
}

type ingestAPIResponse struct {
	Status string `json:"status"`
	Rows   int    `json:"rows"`
}

func NewService(cfg Config, logger *slog.Logger, client *http.Client, blobs storage.ObjectStore) (*Service, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if err := storage.ValidateContainerName(cfg.Container); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		http:      client,
		blobs:     blobs,
		generator: NewGenerator(cfg.Seed),
		batchID:   time.Now().UTC().Unix(),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.blobs.EnsureContainer(ctx, s.cfg.Container); err != nil {
		return fmt.Errorf("ensure demo container: %w", err)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.ProduceOnce(ctx); err != nil {
			s.log.Error("failed to publish demo workbook", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProduceOnce uploads one workbook and triggers its ingestion.
func (s *Service) ProduceOnce(ctx context.Context) error {
	rows := s.generator.NextRows(s.cfg.BatchSize)
	workbook, err := BuildWorkbook(s.generator.Columns(), rows)
	if err != nil {
		return fmt.Errorf("build demo workbook: %w", err)
	}

	key, err := storage.BuildWorkbookKey(s.cfg.TableName, s.now(), s.batchID, s.sequence)
	if err != nil {
		return fmt.Errorf("build workbook key: %w", err)
	}
	s.sequence++

	if _, err := s.blobs.Put(ctx, s.cfg.Container, key, bytes.NewReader(workbook), int64(len(workbook)), storage.PutOptions{
		ContentType: workbookContentType,
	}); err != nil {
		return fmt.Errorf("upload demo workbook: %w", err)
	}

	response, err := s.requestIngest(ctx, key)
	if err != nil {
		return err
	}

	s.log.Info("published demo workbook",
		slog.String("container", s.cfg.Container),
		slog.String("blob", key),
		slog.String("table", s.cfg.TableName),
		slog.Int("rows", response.Rows),
	)
	return nil
}

func (s *Service) requestIngest(ctx context.Context, key string) (ingestAPIResponse, error) {
	payload, err := json.Marshal(ingestAPIRequest{ContainerName: s.cfg.Container, BlobName: key})
	if err != nil {
		return ingestAPIResponse{}, fmt.Errorf("marshal ingest request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIBaseURL+"/ingest-excel-blob/", bytes.NewReader(payload))
	if err != nil {
		return ingestAPIResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return ingestAPIResponse{}, fmt.Errorf("ingest request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ingestAPIResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return ingestAPIResponse{}, fmt.Errorf("ingest request status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response ingestAPIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ingestAPIResponse{}, fmt.Errorf("decode ingest response: %w", err)
	}
	return response, nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	apperrors "codetime/internal/infrastructure/errors"
	"codetime/internal/infrastructure/logging"
	"codetime/internal/repository"
	"codetime/internal/types"
)

// importBatchSize bounds how many sessions go into one insert
// transaction during import.
const importBatchSize = 200

// ExportService moves session data in and out as versioned JSON.
// Import is idempotent: sessions whose UUID already exists are skipped,
// so re-importing the same file changes nothing.
type ExportService struct {
	repo   repository.SessionRepository
	logger logging.Logger
	now    func() time.Time
}

func NewExportService(repo repository.SessionRepository, logger logging.Logger) *ExportService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &ExportService{repo: repo, logger: logger, now: time.Now}
}

// Export snapshots every non-deleted session into the interchange
// envelope.
func (s *ExportService) Export(ctx context.Context) (*types.ExportData, error) {
	first, last, err := s.repo.GetTimeBounds(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return s.envelope(nil), nil
		}
		return nil, err
	}

	sessions, err := s.repo.GetSessionsInRange(ctx, first, last.Add(time.Second), "")
	if err != nil {
		return nil, err
	}

	exported := make([]types.ExportedSession, 0, len(sessions))
	for i := range sessions {
		exported = append(exported, exportSession(&sessions[i]))
	}
	return s.envelope(exported), nil
}

func (s *ExportService) envelope(sessions []types.ExportedSession) *types.ExportData {
	return &types.ExportData{
		ExportVersion: types.ExportVersion,
		ExportTime:    s.now().UTC().Format(time.RFC3339),
		TotalSessions: len(sessions),
		Sessions:      sessions,
	}
}

// ExportToFile writes the export envelope as indented JSON.
func (s *ExportService) ExportToFile(ctx context.Context, path string) error {
	data, err := s.Export(ctx)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export data: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	s.logger.Info("Exported sessions", "path", path, "count", data.TotalSessions)
	return nil
}

// Import merges an export envelope into the local database. Rows with
// a known UUID are skipped, rows that fail validation are counted as
// failed, the rest are inserted in batches.
func (s *ExportService) Import(ctx context.Context, data *types.ExportData) (types.ImportResult, error) {
	var result types.ImportResult

	if data == nil {
		return result, apperrors.HandleValidationError("Import", "data", "", "import payload is nil")
	}
	if data.ExportVersion != types.ExportVersion {
		return result, apperrors.HandleValidationError("Import", "exportVersion",
			data.ExportVersion, "unsupported export version")
	}

	uuids := make([]string, 0, len(data.Sessions))
	for i := range data.Sessions {
		uuids = append(uuids, data.Sessions[i].SessionUUID)
	}
	existing, err := s.repo.FindExistingUUIDs(ctx, uuids)
	if err != nil {
		return result, err
	}

	var pending []types.CodingSession
	for i := range data.Sessions {
		exported := &data.Sessions[i]
		if _, ok := existing[exported.SessionUUID]; ok {
			result.Skipped++
			continue
		}
		session, err := importSession(exported)
		if err != nil {
			result.Failed++
			s.logger.Warn("Skipping malformed session in import",
				"session_uuid", exported.SessionUUID, "error", err)
			continue
		}
		pending = append(pending, *session)
	}

	for start := 0; start < len(pending); start += importBatchSize {
		end := start + importBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		if err := s.repo.InsertSessions(ctx, batch, types.BatchStrategyInsertOnly); err != nil {
			result.Failed += len(batch)
			s.logger.Error("Import batch failed", "error", err, "batch_size", len(batch))
			continue
		}
		result.Imported += len(batch)
	}

	s.logger.Info("Import finished", "imported", result.Imported,
		"skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// ImportFromFile reads and merges an export file.
func (s *ExportService) ImportFromFile(ctx context.Context, path string) (types.ImportResult, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return types.ImportResult{}, fmt.Errorf("failed to read import file: %w", err)
	}

	var data types.ExportData
	if err := json.Unmarshal(encoded, &data); err != nil {
		return types.ImportResult{}, apperrors.HandleValidationError("ImportFromFile",
			"file", path, "not a valid export file")
	}
	return s.Import(ctx, &data)
}

func exportSession(session *types.CodingSession) types.ExportedSession {
	return types.ExportedSession{
		SessionUUID:  session.SessionUUID,
		UserID:       session.UserID,
		ProjectName:  session.ProjectName,
		Language:     session.Language,
		Platform:     session.Platform,
		IDEName:      session.IDEName,
		StartTime:    session.StartTime.UTC().Format(time.RFC3339),
		EndTime:      session.EndTime.UTC().Format(time.RFC3339),
		LastModified: session.LastModified.UTC().Format(time.RFC3339),
	}
}

func importSession(exported *types.ExportedSession) (*types.CodingSession, error) {
	if exported.SessionUUID == "" {
		return nil, fmt.Errorf("missing session uuid")
	}

	start, err := time.Parse(time.RFC3339, exported.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", exported.StartTime, err)
	}
	end, err := time.Parse(time.RFC3339, exported.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end time %q: %w", exported.EndTime, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end time precedes start time")
	}

	lastModified := end
	if exported.LastModified != "" {
		if parsed, err := time.Parse(time.RFC3339, exported.LastModified); err == nil {
			lastModified = parsed
		}
	}

	return &types.CodingSession{
		SessionUUID:  exported.SessionUUID,
		UserID:       exported.UserID,
		ProjectName:  exported.ProjectName,
		Language:     exported.Language,
		Platform:     exported.Platform,
		IDEName:      exported.IDEName,
		StartTime:    start.UTC(),
		EndTime:      end.UTC(),
		LastModified: lastModified.UTC(),
	}, nil
}

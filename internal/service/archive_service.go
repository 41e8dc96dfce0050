package service

import (
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/export"
)

type archiveStorage interface {
	Save(relPath string, data []byte) (string, error)
	Read(relPath string) ([]byte, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type archiveSigner interface {
	Generate(owner, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (owner, relPath string, expiresAt time.Time, err error)
}

// ArchiveConfig controls where archived documents are served from and how long they live.
type ArchiveConfig struct {
	URLPrefix string
	TTL       time.Duration
}

// ArchivedDocument points at a stored copy of a generated document.
type ArchivedDocument struct {
	Path      string
	URL       string
	ExpiresAt time.Time
}

// ArchiveService keeps a copy of generated bulletins and hands out signed download links.
type ArchiveService struct {
	storage archiveStorage
	signer  archiveSigner
	logger  *zap.Logger
	config  ArchiveConfig
	now     func() time.Time
}

// NewArchiveService constructs an ArchiveService.
func NewArchiveService(storage archiveStorage, signer archiveSigner, logger *zap.Logger, config ArchiveConfig) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.URLPrefix == "" {
		config.URLPrefix = "/api/v1/bulletins/archive/"
	}
	if !strings.HasSuffix(config.URLPrefix, "/") {
		config.URLPrefix += "/"
	}
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	return &ArchiveService{storage: storage, signer: signer, logger: logger, config: config, now: time.Now}
}

// Store saves doc under <account>/<timestamp>_<filename> and signs a link to it.
// Expired copies are swept first, in the same call.
func (s *ArchiveService) Store(accountID string, doc *export.Document) (*ArchivedDocument, error) {
	if doc == nil {
		return nil, fmt.Errorf("archive: nil document")
	}
	if err := s.Cleanup(); err != nil {
		s.logger.Warn("archive cleanup failed", zap.Error(err))
	}
	relPath := path.Join(accountID, fmt.Sprintf("%s_%s", s.now().UTC().Format("20060102T150405"), doc.Filename))
	saved, err := s.storage.Save(relPath, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("archive document: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(accountID, saved)
	if err != nil {
		return nil, fmt.Errorf("sign archive link: %w", err)
	}
	return &ArchivedDocument{Path: saved, URL: s.config.URLPrefix + token, ExpiresAt: expiresAt}, nil
}

// Open resolves a signed token back to the archived document.
func (s *ArchiveService) Open(token string) (*export.Document, error) {
	owner, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	if !strings.HasPrefix(relPath, owner+"/") {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	data, err := s.storage.Read(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "archived document not found")
	}
	filename := path.Base(relPath)
	if idx := strings.Index(filename, "_"); idx >= 0 {
		filename = filename[idx+1:]
	}
	return &export.Document{Filename: filename, ContentType: contentTypeFor(filename), Data: data}, nil
}

// Cleanup removes archived documents older than the link TTL.
func (s *ArchiveService) Cleanup() error {
	removed, err := s.storage.CleanupOlderThan(s.config.TTL)
	if err != nil {
		return fmt.Errorf("cleanup archive: %w", err)
	}
	if len(removed) > 0 {
		s.logger.Info("archive cleanup", zap.Int("removed", len(removed)))
	}
	return nil
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".zip":
		return export.ContentTypeZip
	case ".pdf":
		return export.ContentTypePDF
	case ".xlsx":
		return export.ContentTypeXLSX
	default:
		return "application/octet-stream"
	}
}

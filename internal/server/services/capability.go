package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apetrenko/filevault/internal/common"
	"github.com/apetrenko/filevault/internal/cryptox"
	"github.com/apetrenko/filevault/internal/server/auth"
	"github.com/apetrenko/filevault/internal/server/config"
	"github.com/apetrenko/filevault/internal/server/models"
	"github.com/apetrenko/filevault/internal/server/repositories/repomanager"
)

const envelopeSeparator = ":"

// CapabilityService converts a file access decision into a single-use,
// expiring download capability and redeems it later.
//
// A capability has two layers. The envelope handed to the client is an
// encrypted blob carrying (file_id, consumer_id, grant_id); it keeps the
// identifiers opaque and tamper-evident in transit, but since the key
// travels inside the envelope it is no secret from the bearer. The actual
// authorization state is the persisted grant row: ownership binding, expiry
// and the consumed flag, checked and flipped at redemption.
type CapabilityService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	grantValidity time.Duration

	// now is a clock seam for expiry tests.
	now func() time.Time
}

// NewCapabilityService constructs a CapabilityService using repositories and
// server config.
func NewCapabilityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *CapabilityService {
	return &CapabilityService{
		db:            db,
		repomanager:   m,
		grantValidity: cfg.DownloadGrantValidity,
		now:           time.Now,
	}
}

// IssueGrant persists a fresh single-use grant binding fileID to consumerID
// and returns its envelope. The grant is persisted before the envelope is
// produced: no envelope ever references an unpersisted grant. A missing file
// yields common.ErrorNotFound.
func (s *CapabilityService) IssueGrant(ctx context.Context, fileID, consumerID int64) (string, error) {
	if _, err := s.repomanager.Files(s.db).Get(ctx, fileID); err != nil {
		return "", err
	}

	grantID, err := auth.NewGrantID()
	if err != nil {
		return "", common.ErrorInternal
	}

	grant := &models.DownloadGrant{
		ID:         grantID,
		FileID:     fileID,
		ConsumerID: consumerID,
		ExpiresAt:  s.now().Add(s.grantValidity),
	}
	if err := s.repomanager.Grants(s.db).Create(ctx, grant); err != nil {
		return "", fmt.Errorf("error persisting grant: %w", err)
	}

	return sealEnvelope(fileID, consumerID, grantID)
}

// Redeem validates and consumes the capability in envelope, returning the
// authorized file record. The envelope alone is the credential; no session
// is involved. Failure causes stay distinguishable for logging:
// ErrMalformedEnvelope, ErrGrantNotFound (also covers a binding mismatch),
// ErrGrantAlreadyUsed, ErrGrantExpired. The consumed flag is flipped by a
// single conditional update, so of N concurrent redeemers exactly one wins.
func (s *CapabilityService) Redeem(ctx context.Context, envelope string) (*models.File, error) {
	fileID, consumerID, grantID, err := openEnvelope(envelope)
	if err != nil {
		return nil, common.ErrMalformedEnvelope
	}

	grantRepo := s.repomanager.Grants(s.db)

	grant, err := grantRepo.Get(ctx, grantID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrGrantNotFound
		}
		return nil, fmt.Errorf("error loading grant: %w", err)
	}

	// The envelope must reference exactly the pair recorded at issuance.
	// Which field mismatched is not revealed.
	if grant.FileID != fileID || grant.ConsumerID != consumerID {
		return nil, common.ErrGrantNotFound
	}

	if grant.Consumed {
		return nil, common.ErrGrantAlreadyUsed
	}

	if s.now().After(grant.ExpiresAt) {
		return nil, common.ErrGrantExpired
	}

	consumed, err := grantRepo.Consume(ctx, grantID)
	if err != nil {
		return nil, fmt.Errorf("error consuming grant: %w", err)
	}
	if !consumed {
		// A concurrent redemption won the conditional update.
		return nil, common.ErrGrantAlreadyUsed
	}

	file, err := s.repomanager.Files(s.db).Get(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	return file, nil
}

// sealEnvelope encrypts "{file_id}:{consumer_id}:{grant_id}" under a fresh
// AES-256 key and encodes key and blob as
// base64url(key) ':' base64url(nonce‖ciphertext).
func sealEnvelope(fileID, consumerID int64, grantID string) (string, error) {
	key := cryptox.NewKey()

	plaintext := fmt.Sprintf("%d%s%d%s%s", fileID, envelopeSeparator, consumerID, envelopeSeparator, grantID)
	sealed, err := cryptox.Seal([]byte(plaintext), key)
	if err != nil {
		return "", common.ErrorInternal
	}

	return base64.RawURLEncoding.EncodeToString(key) +
		envelopeSeparator +
		base64.RawURLEncoding.EncodeToString(sealed), nil
}

// openEnvelope reverses sealEnvelope. Every failure mode — missing
// separator, bad base64, failed decryption, unparsable plaintext — returns
// the same ErrMalformedEnvelope so the decoder cannot be used as an oracle.
func openEnvelope(envelope string) (fileID, consumerID int64, grantID string, err error) {
	parts := strings.SplitN(envelope, envelopeSeparator, 2)
	if len(parts) != 2 {
		return 0, 0, "", common.ErrMalformedEnvelope
	}

	key, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return 0, 0, "", common.ErrMalformedEnvelope
	}
	sealed, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, 0, "", common.ErrMalformedEnvelope
	}

	plaintext, err := cryptox.Open(sealed, key)
	if err != nil {
		return 0, 0, "", common.ErrMalformedEnvelope
	}

	fields := strings.SplitN(string(plaintext), envelopeSeparator, 3)
	if len(fields) != 3 {
		return 0, 0, "", common.ErrMalformedEnvelope
	}

	fileID, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, "", common.ErrMalformedEnvelope
	}
	consumerID, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, "", common.ErrMalformedEnvelope
	}

	return fileID, consumerID, fields[2], nil
}

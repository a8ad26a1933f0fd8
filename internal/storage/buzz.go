package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// BuzzConfig addresses a BuzzHeavier-style storage account.
type BuzzConfig struct {
	AccountID      string // bearer credential
	APIEndpoint    string // e.g. https://buzzheavier.com
	UploadEndpoint string // e.g. https://w.buzzheavier.com
	Logger         *logrus.Logger
}

// BuzzService writes files to a BuzzHeavier-style API: a streamed PUT into
// the account's root directory, answered with a JSON payload carrying the
// new object id.
type BuzzService struct {
	cfg       BuzzConfig
	client    *resty.Client
	rootDirID string
}

// uploads can legitimately run for hours
const uploadTimeout = 3 * time.Hour

func NewBuzzService(cfg BuzzConfig) *BuzzService {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	client := resty.New().
		SetTimeout(uploadTimeout).
		SetHeader("Authorization", "Bearer "+cfg.AccountID)
	return &BuzzService{cfg: cfg, client: client}
}

type apiPayload struct {
	Code int    `json:"code"`
	Data apiFS  `json:"data"`
	Msg  string `json:"message"`
}

type apiFS struct {
	ID string `json:"id"`
}

// ResolveRootDir fetches the account's root directory identifier. Called
// once at startup; failure there is fatal to the process.
func (s *BuzzService) ResolveRootDir(ctx context.Context) error {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.cfg.APIEndpoint + "/api/fs")
	if err != nil {
		return fmt.Errorf("fetch root directory: %w", err)
	}

	var payload apiPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return fmt.Errorf("parse root directory response: %w", err)
	}
	if !resp.IsSuccess() || payload.Code != 200 || payload.Data.ID == "" {
		msg := payload.Msg
		if msg == "" {
			msg = fmt.Sprintf("http status %d", resp.StatusCode())
		}
		return fmt.Errorf("storage api error: %s", msg)
	}

	s.rootDirID = payload.Data.ID
	s.cfg.Logger.Infof("resolved storage root directory: %s", s.rootDirID)
	return nil
}

// Upload streams localPath into the root directory under remoteName. A 2xx
// reply whose body does not parse into a payload with an object id is a
// failure: the link would be unusable.
func (s *BuzzService) Upload(ctx context.Context, localPath, remoteName string, onProgress ProgressFunc) (int64, string, error) {
	if s.rootDirID == "" {
		return 0, "", fmt.Errorf("storage root directory not resolved")
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return 0, "", fmt.Errorf("stat upload source: %w", err)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return 0, "", fmt.Errorf("open upload source: %w", err)
	}
	defer f.Close()

	body := newCountingReader(f, remoteName, info.Size(), onProgress)
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		Put(fmt.Sprintf("%s/%s/%s", s.cfg.UploadEndpoint, s.rootDirID, remoteName))
	if err != nil {
		return 0, "", fmt.Errorf("upload %s: %w", remoteName, err)
	}
	if !resp.IsSuccess() {
		return 0, "", fmt.Errorf("upload %s: http status %d", remoteName, resp.StatusCode())
	}

	var payload apiPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return 0, "", fmt.Errorf("parse upload response: %w", err)
	}
	if payload.Data.ID == "" {
		return 0, "", fmt.Errorf("upload response missing object id")
	}

	link := strings.TrimSuffix(s.cfg.APIEndpoint, "/") + "/" + payload.Data.ID
	return info.Size(), link, nil
}

var _ Service = (*BuzzService)(nil)

// Package auth はネットワークストアへの到達性・認証状態の確認とセッション管理を提供する。
// 到達できない、または未認証であることはエラーではなく、オフライン状態として扱う。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pushmyself/internal/mirror"
	"github.com/hitoshi/pushmyself/internal/model"
	"github.com/hitoshi/pushmyself/internal/repository"
)

// Pinger はネットワークストアの到達確認に必要なインターフェース。*sql.DB が満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	ReachTimeout  time.Duration
	SessionMaxAge time.Duration
}

// storedSession はLocal Mirrorに保存するセッション情報。
type storedSession struct {
	SessionID string    `json:"session_id"`
	StoredAt  time.Time `json:"stored_at"`
}

// Service は接続確認とセッションのサインイン・サインアウトを提供する。
type Service struct {
	pinger      Pinger
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	store       mirror.Store
	config      ServiceConfig
	logger      *slog.Logger

	mu   sync.RWMutex
	last model.Connectivity
}

// NewService はServiceを生成する。pingerがnilの場合は常にオフラインとして振る舞う。
func NewService(
	pinger Pinger,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	store mirror.Store,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	if config.ReachTimeout <= 0 {
		config.ReachTimeout = 3 * time.Second
	}
	if config.SessionMaxAge <= 0 {
		config.SessionMaxAge = 30 * 24 * time.Hour
	}
	return &Service{
		pinger:      pinger,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		store:       store,
		config:      config,
		logger:      logger,
	}
}

// Check はネットワークストアに到達でき、保存済みセッションが有効かを確認する。
func (s *Service) Check(ctx context.Context) model.Connectivity {
	conn := s.reach(ctx)
	s.remember(conn)
	return conn
}

func (s *Service) reach(ctx context.Context) model.Connectivity {
	var conn model.Connectivity
	if s.pinger == nil {
		return conn
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ReachTimeout)
	defer cancel()

	if err := s.pinger.PingContext(ctx); err != nil {
		s.logger.Debug("ネットワークストアに到達できません",
			slog.String("error", err.Error()),
		)
		return conn
	}
	conn.Reachable = true

	sessionID, err := s.storedSessionID()
	if err != nil {
		s.logger.Warn("保存済みセッションを読み込めません",
			slog.String("error", err.Error()),
		)
		return conn
	}
	if sessionID == "" {
		return conn
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		s.logger.Debug("セッションの確認に失敗しました",
			slog.String("error", err.Error()),
		)
		return conn
	}
	if session == nil {
		return conn
	}

	conn.Authenticated = true
	conn.OwnerID = session.UserID
	return conn
}

// Last は直近のCheck結果を返す。
func (s *Service) Last() model.Connectivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// CurrentOwner は直近のCheckで認証済みだった所有者IDを返す。未認証なら空文字列。
func (s *Service) CurrentOwner() string {
	return s.Last().OwnerID
}

func (s *Service) remember(conn model.Connectivity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last.Online() != conn.Online() {
		s.logger.Info("接続状態が変化しました",
			slog.Bool("online", conn.Online()),
			slog.Bool("reachable", conn.Reachable),
		)
	}
	s.last = conn
}

// Register はユーザーとセッションを新規作成し、セッションを保存する。
// 到達できない場合はOFFLINEエラーを返す。
func (s *Service) Register(ctx context.Context, displayName string) (*model.Session, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, model.NewInvalidRequestError("display_name is required")
	}
	if !s.reach(ctx).Reachable {
		return nil, model.NewOfflineError()
	}

	now := time.Now()
	user := &model.User{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.storeSessionID(session.ID); err != nil {
		return nil, err
	}

	s.logger.Info("new user registered",
		slog.String("user_id", user.ID),
	)
	s.Check(ctx)
	return session, nil
}

// SignIn はセッションIDを検証して保存する。
// ストアに到達できない場合は検証を次回の接続確認に委ねて保存のみ行う。
func (s *Service) SignIn(ctx context.Context, sessionID string) (model.Connectivity, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return model.Connectivity{}, model.NewInvalidRequestError("session_id is required")
	}

	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, s.config.ReachTimeout)
		pingErr := s.pinger.PingContext(pingCtx)
		cancel()

		if pingErr == nil {
			session, err := s.sessionRepo.FindByID(ctx, sessionID)
			if err != nil {
				return model.Connectivity{}, fmt.Errorf("failed to find session: %w", err)
			}
			if session == nil {
				return model.Connectivity{}, model.NewSessionInvalidError()
			}
			// サインインのたびに有効期限を延ばす
			expiresAt := time.Now().Add(s.config.SessionMaxAge)
			if err := s.sessionRepo.Extend(ctx, sessionID, expiresAt); err != nil {
				s.logger.Warn("failed to extend session", slog.String("error", err.Error()))
			}
		}
	}

	if err := s.storeSessionID(sessionID); err != nil {
		return model.Connectivity{}, err
	}
	return s.Check(ctx), nil
}

// SignOut は保存済みセッションを削除する。到達できればネットワーク側のセッションも削除する。
func (s *Service) SignOut(ctx context.Context) error {
	sessionID, err := s.storedSessionID()
	if err != nil {
		return err
	}
	if err := s.store.Delete(mirror.SessionKey); err != nil {
		return err
	}

	if sessionID != "" && s.Last().Reachable {
		if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
			s.logger.Warn("ネットワーク側のセッション削除に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	s.remember(model.Connectivity{Reachable: s.Last().Reachable})
	s.logger.Info("signed out")
	return nil
}

// Adopt は保存済みセッションがない場合に限りsessionIDを保存する。起動時の初期設定用。
func (s *Service) Adopt(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	current, err := s.storedSessionID()
	if err != nil {
		return err
	}
	if current != "" {
		return nil
	}
	return s.storeSessionID(sessionID)
}

func (s *Service) storedSessionID() (string, error) {
	var stored storedSession
	ok, err := mirror.GetJSON(s.store, mirror.SessionKey, &stored)
	if err != nil || !ok {
		return "", err
	}
	return stored.SessionID, nil
}

func (s *Service) storeSessionID(sessionID string) error {
	return mirror.PutJSON(s.store, mirror.SessionKey, storedSession{
		SessionID: sessionID,
		StoredAt:  time.Now(),
	})
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(s.config.SessionMaxAge),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/backend"
	"lxmf-chat/pkg/events"
	"lxmf-chat/pkg/model"
	"lxmf-chat/pkg/thread"
)

func (s *Session) selectedPeer() (model.Peer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return model.Peer{}, ErrNoPeerSelected
	}
	return *s.selected, nil
}

// Send delivers content to the selected peer and refreshes the thread.
func (s *Session) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	p, err := s.selectedPeer()
	if err != nil {
		return err
	}
	if err := s.be.Send(ctx, p.Key(), content); err != nil {
		return fmt.Errorf("send to %s: %w", p.Key(), err)
	}
	s.afterSend(ctx, p.Key(), "send", fmt.Sprintf("%d bytes", len(content)))
	return nil
}

// SendFile uploads a file to the selected peer unless up names a destination.
func (s *Session) SendFile(ctx context.Context, up backend.FileUpload) error {
	if up.Destination == "" {
		p, err := s.selectedPeer()
		if err != nil {
			return err
		}
		up.Destination = p.Key()
	}
	if up.Body == nil || up.FileName == "" {
		return errors.New("file upload needs a name and body")
	}
	if err := s.be.SendFile(ctx, up); err != nil {
		return fmt.Errorf("send file to %s: %w", up.Destination, err)
	}
	s.afterSend(ctx, model.NormalizeHash(up.Destination), "send_file", up.FileName)
	return nil
}

// Retry resends the failed outgoing message with the given timestamp.
func (s *Session) Retry(ctx context.Context, timestamp float64) error {
	p, err := s.selectedPeer()
	if err != nil {
		return err
	}
	m, ok := thread.FindRetryable(s.Thread(), timestamp)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRetryable, strconv.FormatFloat(timestamp, 'f', -1, 64))
	}
	if err := s.be.Send(ctx, p.Key(), m.Content); err != nil {
		return fmt.Errorf("retry to %s: %w", p.Key(), err)
	}
	s.afterSend(ctx, p.Key(), "retry", strconv.FormatFloat(timestamp, 'f', -1, 64))
	return nil
}

func (s *Session) afterSend(ctx context.Context, peer, action, detail string) {
	s.publish(s.event(events.MessageSent, peer, map[string]string{"action": action, "detail": detail}))
	s.audit(ctx, action, peer, detail)
	s.ResetDigest()
	if err := s.RefreshMessages(ctx); err != nil && !errors.Is(err, ErrStale) {
		log.Warn().Err(err).Str("peer", peer).Msg("refresh after send failed")
	}
}

// ToggleFavorite flips the favorite flag of a peer. On the favorites tab an
// unfavorited peer triggers a roster reload.
func (s *Session) ToggleFavorite(ctx context.Context, hash string) (bool, error) {
	fav, err := s.be.ToggleFavorite(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("toggle favorite %s: %w", hash, err)
	}
	s.mu.Lock()
	for i := range s.roster {
		if s.roster[i].Matches(hash) {
			s.roster[i].Favorite = fav
		}
	}
	if s.selected != nil && s.selected.Matches(hash) {
		s.selected.Favorite = fav
	}
	reload := s.tab == model.TabFavorites && !fav
	summary := s.summary
	s.mu.Unlock()

	s.audit(ctx, "favorite", model.NormalizeHash(hash), strconv.FormatBool(fav))
	if reload {
		return fav, s.RefreshPeers(ctx)
	}
	s.publish(s.event(events.PeersUpdated, "", summary))
	return fav, nil
}

// ToggleGroup adds or removes a group tag. Leaving the group shown on the
// current tab triggers a roster reload.
func (s *Session) ToggleGroup(ctx context.Context, hash, group string) ([]string, error) {
	groups, added, err := s.be.ToggleGroup(ctx, hash, group)
	if err != nil {
		return nil, fmt.Errorf("toggle group %s on %s: %w", group, hash, err)
	}
	s.mu.Lock()
	for i := range s.roster {
		if s.roster[i].Matches(hash) {
			s.roster[i].Groups = append([]string(nil), groups...)
		}
	}
	if s.selected != nil && s.selected.Matches(hash) {
		s.selected.Groups = append([]string(nil), groups...)
	}
	current, onGroupTab := s.tab.Group()
	reload := onGroupTab && current == group && !added
	summary := s.summary
	s.mu.Unlock()

	action := "group_remove"
	if added {
		action = "group_add"
	}
	s.audit(ctx, action, model.NormalizeHash(hash), group)
	if reload {
		return groups, s.RefreshPeers(ctx)
	}
	s.publish(s.event(events.PeersUpdated, "", summary))
	return groups, nil
}

// Config fetches the server configuration with defaults filled in.
func (s *Session) Config(ctx context.Context) (model.ServerConfig, error) {
	cfg, err := s.be.Config(ctx)
	if err != nil {
		return model.ServerConfig{}, fmt.Errorf("get config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// SaveConfig validates and stores the server configuration.
func (s *Session) SaveConfig(ctx context.Context, cfg model.ServerConfig) (model.ServerConfig, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return model.ServerConfig{}, err
	}
	saved, err := s.be.SaveConfig(ctx, cfg)
	if err != nil {
		return model.ServerConfig{}, fmt.Errorf("save config: %w", err)
	}
	saved.ApplyDefaults()
	s.audit(ctx, "config_save", string(saved.DeliveryMode), saved.PropagationNode)
	return saved, nil
}

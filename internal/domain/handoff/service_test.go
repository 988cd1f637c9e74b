package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindwell/mindwell/internal/domain/profile"
	"github.com/mindwell/mindwell/pkg/pagination"
)

type mockRepo struct {
	templates map[string]*PromptTemplate // by category/role
	handoffs  []*WarmHandoff
}

func newMockRepo() *mockRepo {
	return &mockRepo{templates: make(map[string]*PromptTemplate)}
}

func (m *mockRepo) setTemplate(role, content string) {
	m.templates[TemplateCategory+"/"+role] = &PromptTemplate{
		ID:       uuid.New(),
		Category: TemplateCategory,
		Role:     role,
		Version:  1,
		IsActive: true,
		Content:  content,
	}
}

func (m *mockRepo) GetLatestActiveTemplate(_ context.Context, category, role string) (*PromptTemplate, error) {
	t, ok := m.templates[category+"/"+role]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

func (m *mockRepo) CreateHandoff(_ context.Context, h *WarmHandoff) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	h.CreatedAt = time.Now()
	m.handoffs = append(m.handoffs, h)
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string, p pagination.Params) ([]*WarmHandoff, int64, error) {
	var out []*WarmHandoff
	for _, h := range m.handoffs {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, int64(len(out)), nil
}

type mockProfiles struct {
	profile *profile.UserProfile
}

func (m *mockProfiles) LatestProfileData(_ context.Context, userID string) (*profile.UserProfile, error) {
	if m.profile == nil {
		return nil, profile.ErrNotFound
	}
	return m.profile, nil
}

type mockCompleter struct {
	response      string
	err           error
	systemPrompts []string
	userPrompts   []string
}

func (m *mockCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.systemPrompts = append(m.systemPrompts, systemPrompt)
	m.userPrompts = append(m.userPrompts, userPrompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func testProfile() *profile.UserProfile {
	return &profile.UserProfile{
		ID:          uuid.New(),
		UserID:      "user-1",
		ProfileData: json.RawMessage(`{"mood":"anxious","goal":"sleep better"}`),
		Version:     3,
	}
}

func TestGenerate_SubstitutesProfileAndPersists(t *testing.T) {
	repo := newMockRepo()
	repo.setTemplate(RoleSystem, "You are a clinical handoff writer.")
	repo.setTemplate(RoleUser, "Write a warm handoff for this patient: {PROFILE_DATA}")

	profiles := &mockProfiles{profile: testProfile()}
	completer := &mockCompleter{response: "Patient presents with anxiety..."}
	svc := NewService(repo, profiles, completer, zerolog.Nop())

	h, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if h.Content != "Patient presents with anxiety..." {
		t.Errorf("content = %q", h.Content)
	}
	if h.ProfileID != profiles.profile.ID || h.ProfileVersion != 3 {
		t.Error("handoff must reference the source profile row")
	}
	if len(repo.handoffs) != 1 {
		t.Fatalf("expected 1 persisted handoff, got %d", len(repo.handoffs))
	}

	if len(completer.userPrompts) != 1 {
		t.Fatal("expected one LLM call")
	}
	prompt := completer.userPrompts[0]
	if strings.Contains(prompt, ProfilePlaceholder) {
		t.Error("placeholder survived substitution")
	}
	if !strings.Contains(prompt, `"mood":"anxious"`) {
		t.Errorf("profile data missing from prompt: %q", prompt)
	}
	if completer.systemPrompts[0] != "You are a clinical handoff writer." {
		t.Errorf("system prompt = %q", completer.systemPrompts[0])
	}
}

func TestGenerate_NoProfile(t *testing.T) {
	repo := newMockRepo()
	repo.setTemplate(RoleSystem, "sys")
	repo.setTemplate(RoleUser, "user {PROFILE_DATA}")
	svc := NewService(repo, &mockProfiles{}, &mockCompleter{}, zerolog.Nop())

	_, err := svc.Generate(context.Background(), "user-1")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestGenerate_RefusesTemplateWithoutPlaceholder(t *testing.T) {
	repo := newMockRepo()
	repo.setTemplate(RoleSystem, "sys")
	repo.setTemplate(RoleUser, "a template that forgot the placeholder")
	completer := &mockCompleter{response: "should not run"}
	svc := NewService(repo, &mockProfiles{profile: testProfile()}, completer, zerolog.Nop())

	_, err := svc.Generate(context.Background(), "user-1")
	if !errors.Is(err, ErrPlaceholderMissing) {
		t.Fatalf("expected ErrPlaceholderMissing, got %v", err)
	}
	if len(completer.userPrompts) != 0 {
		t.Error("LLM must not be called with a raw template")
	}
}

func TestGenerate_MissingTemplate(t *testing.T) {
	repo := newMockRepo()
	repo.setTemplate(RoleSystem, "sys")
	svc := NewService(repo, &mockProfiles{profile: testProfile()}, &mockCompleter{}, zerolog.Nop())

	_, err := svc.Generate(context.Background(), "user-1")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestGenerate_LLMFailureNotPersisted(t *testing.T) {
	repo := newMockRepo()
	repo.setTemplate(RoleSystem, "sys")
	repo.setTemplate(RoleUser, "user {PROFILE_DATA}")
	svc := NewService(repo, &mockProfiles{profile: testProfile()},
		&mockCompleter{err: fmt.Errorf("llm down")}, zerolog.Nop())

	if _, err := svc.Generate(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.handoffs) != 0 {
		t.Error("failed generation must not persist a handoff")
	}
}

func TestList_RequiresUserID(t *testing.T) {
	svc := NewService(newMockRepo(), &mockProfiles{}, &mockCompleter{}, zerolog.Nop())
	_, _, err := svc.List(context.Background(), " ", pagination.Params{Limit: 20})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

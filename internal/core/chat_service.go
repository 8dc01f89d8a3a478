package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"aspada.com/assistant/internal/config"
	"aspada.com/assistant/internal/leads"
	"aspada.com/assistant/internal/metrics"
	"aspada.com/assistant/internal/store"
	"aspada.com/assistant/internal/tasks"
)

const (
	persona = `You are the virtual assistant for Aspada, a real-estate developer.
Answer questions about Aspada projects, locations, amenities, pricing enquiries and site visits.
Be brief, friendly and factual. Only describe projects listed below; if you do not know something,
say so and invite the visitor to leave a phone number so the sales team can call back.
Never invent prices, dates or availability.`

	maxMessageLength = 4000

	// Transcript metadata keys on the model turn.
	metaCacheID    = "cacheId"
	metaIsSemantic = "isSemantic"
	metaSource     = "source"
)

var tracer = otel.Tracer("aspada.com/assistant/internal/core")

type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Store is the persistence the chat pipeline needs; *store.SQLStore satisfies it.
type Store interface {
	FindCacheEntryByQuestion(ctx context.Context, question string) (*store.CacheEntry, error)
	ListEmbeddedCacheEntries(ctx context.Context) ([]store.CacheEntry, error)
	CreateCacheEntry(ctx context.Context, entry *store.CacheEntry) error
	IncrementFeedback(ctx context.Context, id string, helpful bool) (*store.CacheEntry, error)
	IncrementHitCount(ctx context.Context, id string) error
	CreateTranscriptTurn(ctx context.Context, turn *store.TranscriptTurn) error
	CreateLead(ctx context.Context, lead *store.Lead) error
	ListProjects(ctx context.Context, status string) ([]store.Project, error)
}

// ExactCache is an optional hot cache in front of the exact SQL lookup.
type ExactCache interface {
	Get(ctx context.Context, question string) (*store.CacheEntry, error)
	Put(ctx context.Context, entry *store.CacheEntry) error
}

type BackgroundRunner interface {
	Submit(t tasks.Task) bool
}

type Deps struct {
	Store      Store
	Embedder   Embedder
	Generator  Generator
	Background BackgroundRunner
	ExactCache ExactCache        // optional
	Notifier   leads.Notifier    // optional
	Extractors []leads.Extractor // defaults to the phone extractor
	Logger     *zap.Logger
}

type Options struct {
	SemanticThreshold float64
	HistoryLimit      int
	ListingScope      config.ListingScope
	EmbedTimeout      time.Duration
	GenerateTimeout   time.Duration
}

// OptionsFromConfig maps the assistant settings onto chat options.
func OptionsFromConfig(cfg config.AssistantConfig) Options {
	return Options{
		SemanticThreshold: cfg.SemanticThreshold,
		HistoryLimit:      cfg.HistoryLimit,
		ListingScope:      cfg.ListingScope,
		EmbedTimeout:      cfg.EmbedTimeout,
		GenerateTimeout:   cfg.GenerateTimeout,
	}
}

type ChatService struct {
	store      Store
	embedder   Embedder
	generator  Generator
	background BackgroundRunner
	hot        ExactCache
	notifier   leads.Notifier
	extractors []leads.Extractor
	matcher    *SemanticMatcher
	opts       Options
	logger     *zap.Logger
}

func NewChatService(deps Deps, opts Options) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	extractors := deps.Extractors
	if len(extractors) == 0 {
		extractors = []leads.Extractor{leads.PhoneExtractor{}}
	}
	if opts.ListingScope == "" {
		opts.ListingScope = config.ListingScopeOngoing
	}

	return &ChatService{
		store:      deps.Store,
		embedder:   deps.Embedder,
		generator:  deps.Generator,
		background: deps.Background,
		hot:        deps.ExactCache,
		notifier:   deps.Notifier,
		extractors: extractors,
		matcher:    NewSemanticMatcher(opts.SemanticThreshold, logger),
		opts:       opts,
		logger:     logger,
	}
}

type ChatRequest struct {
	Message   string `json:"message"`
	History   []Turn `json:"history"`
	SessionID string `json:"sessionId"`
}

type ChatResponse struct {
	Text       string `json:"text"`
	CacheID    string `json:"cacheId"`
	IsSemantic bool   `json:"isSemantic"`
	SessionID  string `json:"sessionId"`
}

func validateChatRequest(req ChatRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return &ValidationError{Field: "message", Message: "must not be empty"}
	}
	if utf8.RuneCountInString(req.Message) > maxMessageLength {
		return &ValidationError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", maxMessageLength)}
	}
	for i, turn := range req.History {
		if turn.Role != store.RoleUser && turn.Role != store.RoleModel {
			return &ValidationError{
				Field:   fmt.Sprintf("history[%d].role", i),
				Message: fmt.Sprintf("must be %q or %q", store.RoleUser, store.RoleModel),
			}
		}
	}
	return nil
}

// ChatWithAI answers one message. An exact cache hit returns the stored answer
// without calling the embedding or generation services; a semantic hit skips
// generation; otherwise the answer is generated once and persisted before
// returning. Transcript and lead writes are queued and never delay the reply.
func (s *ChatService) ChatWithAI(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "ChatService.ChatWithAI")
	defer span.End()

	if err := validateChatRequest(req); err != nil {
		failSpan(span, err)
		return nil, err
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	question, history := Normalize(req.Message, req.History, s.opts.HistoryLimit)

	resp, outcome, err := s.answer(ctx, question, history)
	if err != nil {
		metrics.ChatRequests.WithLabelValues(metrics.OutcomeError).Inc()
		failSpan(span, err)
		s.logger.Error("chat request failed", zap.String("sessionId", sessionID), zap.Error(err))
		return nil, err
	}

	resp.SessionID = sessionID
	metrics.ChatRequests.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("chat.outcome", outcome))
	s.logger.Info("chat answered",
		zap.String("sessionId", sessionID),
		zap.String("outcome", outcome),
		zap.String("cacheId", resp.CacheID))

	if outcome != metrics.OutcomeGenerated && resp.CacheID != "" {
		s.enqueue(s.countHitTask(resp.CacheID))
	}
	s.enqueue(s.logConversationTask(sessionID, req.Message, resp, outcome))
	if lead, ok := s.leadFromMessage(sessionID, req.Message); ok {
		s.enqueue(s.captureLeadTask(lead))
	}
	return resp, nil
}

func (s *ChatService) answer(ctx context.Context, question string, history []Turn) (*ChatResponse, string, error) {
	entry, err := s.lookupExact(ctx, question)
	if err != nil {
		return nil, "", err
	}
	if entry != nil {
		return &ChatResponse{Text: entry.Answer, CacheID: entry.ID}, metrics.OutcomeExact, nil
	}

	embedding, err := s.embed(ctx, question)
	if err != nil {
		return nil, "", err
	}

	match, err := s.lookupSemantic(ctx, embedding)
	if err != nil {
		return nil, "", err
	}
	if match.Hit {
		return &ChatResponse{Text: match.Entry.Answer, CacheID: match.Entry.ID, IsSemantic: true}, metrics.OutcomeSemantic, nil
	}

	text, err := s.generate(ctx, question, history)
	if err != nil {
		return nil, "", err
	}

	return &ChatResponse{Text: text, CacheID: s.persist(ctx, question, text, embedding)}, metrics.OutcomeGenerated, nil
}

// lookupExact checks the hot cache first and falls back to the store. Hot
// cache failures are not fatal.
func (s *ChatService) lookupExact(ctx context.Context, question string) (*store.CacheEntry, error) {
	ctx, span := tracer.Start(ctx, "cache.exact")
	defer span.End()

	if s.hot != nil {
		entry, err := s.hot.Get(ctx, question)
		if err != nil {
			s.logger.Warn("hot cache lookup failed, falling back to store", zap.Error(err))
		} else if entry != nil {
			span.SetAttributes(attribute.Bool("cache.hot", true))
			return entry, nil
		}
	}

	entry, err := s.store.FindCacheEntryByQuestion(ctx, question)
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("exact cache lookup: %w", err)
	}
	if entry != nil && s.hot != nil {
		if err := s.hot.Put(ctx, entry); err != nil {
			s.logger.Warn("hot cache backfill failed", zap.String("cacheId", entry.ID), zap.Error(err))
		}
	}
	return entry, nil
}

func (s *ChatService) embed(ctx context.Context, question string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "llm.embed")
	defer span.End()

	if s.opts.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.EmbedTimeout)
		defer cancel()
	}

	start := time.Now()
	embedding, err := s.embedder.GetEmbedding(ctx, question)
	metrics.ExternalCallDuration.WithLabelValues("embedding").Observe(time.Since(start).Seconds())
	if err != nil {
		err = &ExternalServiceError{Service: "embedding", Err: err}
		failSpan(span, err)
		return nil, err
	}
	return embedding, nil
}

func (s *ChatService) lookupSemantic(ctx context.Context, embedding []float32) (SemanticMatch, error) {
	ctx, span := tracer.Start(ctx, "cache.semantic")
	defer span.End()

	entries, err := s.store.ListEmbeddedCacheEntries(ctx)
	if err != nil {
		failSpan(span, err)
		return SemanticMatch{}, fmt.Errorf("semantic cache scan: %w", err)
	}

	match := s.matcher.Best(embedding, entries)
	span.SetAttributes(attribute.Int("cache.entries", len(entries)))
	if match.Entry != nil {
		metrics.SemanticBestScore.Observe(match.Score)
		span.SetAttributes(attribute.Float64("cache.best_score", match.Score))
	}
	return match, nil
}

func (s *ChatService) systemInstruction(ctx context.Context) string {
	projects, err := s.store.ListProjects(ctx, listingStatusFilter(s.opts.ListingScope))
	if err != nil {
		s.logger.Warn("failed to load listings, generating without them", zap.Error(err))
		return persona
	}
	if len(projects) == 0 {
		return persona
	}
	return persona + "\n\nCurrent projects:\n" + BuildListingContext(projects)
}

func (s *ChatService) generate(ctx context.Context, question string, history []Turn) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.generate")
	defer span.End()

	req := GenerationRequest{
		SystemInstruction: s.systemInstruction(ctx),
		History:           history,
		Message:           question,
	}

	if s.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.GenerateTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, req)
	metrics.ExternalCallDuration.WithLabelValues("generation").Observe(time.Since(start).Seconds())
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyGeneration
	}
	if err != nil {
		err = &ExternalServiceError{Service: "generation", Err: err}
		failSpan(span, err)
		return "", err
	}
	return text, nil
}

// persist stores a generated answer and returns its id. On failure the
// answer is still served, just without a cache id.
func (s *ChatService) persist(ctx context.Context, question, answer string, embedding []float32) string {
	ctx, span := tracer.Start(ctx, "cache.persist")
	defer span.End()

	entry := &store.CacheEntry{
		Question:  question,
		Answer:    answer,
		Embedding: embedding,
	}
	if err := s.store.CreateCacheEntry(ctx, entry); err != nil {
		metrics.CachePersistFailures.Inc()
		failSpan(span, err)
		s.logger.Warn("failed to cache generated answer", zap.String("question", question), zap.Error(err))
		return ""
	}

	if s.hot != nil {
		if err := s.hot.Put(ctx, entry); err != nil {
			s.logger.Warn("hot cache write failed", zap.String("cacheId", entry.ID), zap.Error(err))
		}
	}
	return entry.ID
}

func (s *ChatService) enqueue(t tasks.Task) {
	if s.background == nil {
		return
	}
	if !s.background.Submit(t) {
		s.logger.Warn("background task not accepted", zap.String("task", t.Name))
	}
}

// logConversationTask appends the user turn and, only if that worked, the
// model turn.
func (s *ChatService) logConversationTask(sessionID, message string, resp *ChatResponse, outcome string) tasks.Task {
	return tasks.Task{
		Name: "log_conversation",
		Run: func(ctx context.Context) error {
			userTurn := &store.TranscriptTurn{
				SessionID: sessionID,
				Role:      store.RoleUser,
				Content:   message,
			}
			if err := s.store.CreateTranscriptTurn(ctx, userTurn); err != nil {
				return fmt.Errorf("log user turn: %w", err)
			}

			modelTurn := &store.TranscriptTurn{
				SessionID: sessionID,
				Role:      store.RoleModel,
				Content:   resp.Text,
				Metadata: map[string]string{
					metaCacheID:    resp.CacheID,
					metaIsSemantic: strconv.FormatBool(resp.IsSemantic),
					metaSource:     outcome,
				},
			}
			if err := s.store.CreateTranscriptTurn(ctx, modelTurn); err != nil {
				return fmt.Errorf("log model turn: %w", err)
			}
			return nil
		},
	}
}

// leadFromMessage runs every extractor over the raw message and maps what
// they find onto a lead. The first valid phone number wins; other kinds only
// enrich it. Without a phone number there is no lead.
func (s *ChatService) leadFromMessage(sessionID, message string) (*store.Lead, bool) {
	lead := &store.Lead{
		Status:   store.LeadStatusNew,
		Interest: "Chat session " + sessionID,
		Source:   store.LeadSourceChat,
	}
	for _, ex := range s.extractors {
		match, ok := ex.Extract(message)
		if !ok {
			continue
		}
		switch match.Kind {
		case leads.KindPhone:
			if lead.ContactNo == "" && leads.IsValidPhone(match.Value) {
				lead.ContactNo = match.Value
			}
		case leads.KindEmail:
			if lead.ContactEmail == "" {
				lead.ContactEmail = match.Value
			}
		default:
			s.logger.Debug("ignoring unmapped extractor match", zap.String("kind", match.Kind))
		}
	}
	return lead, lead.ContactNo != ""
}

func (s *ChatService) captureLeadTask(lead *store.Lead) tasks.Task {
	return tasks.Task{
		Name: "capture_lead",
		Run: func(ctx context.Context) error {
			if err := s.store.CreateLead(ctx, lead); err != nil {
				return fmt.Errorf("create chat lead: %w", err)
			}
			metrics.LeadsCreated.WithLabelValues(lead.Source).Inc()
			s.logger.Info("lead captured from chat", zap.String("leadId", lead.ID), zap.String("interest", lead.Interest))
			s.notify(ctx, lead)
			return nil
		},
	}
}

func (s *ChatService) countHitTask(cacheID string) tasks.Task {
	return tasks.Task{
		Name: "count_hit",
		Run: func(ctx context.Context) error {
			return s.store.IncrementHitCount(ctx, cacheID)
		},
	}
}

func (s *ChatService) notify(ctx context.Context, lead *store.Lead) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyLead(ctx, lead); err != nil {
		s.logger.Warn("lead notification failed", zap.String("leadId", lead.ID), zap.Error(err))
	}
}

// SubmitFeedback records one helpful or unhelpful vote on a cached answer and
// returns the updated entry. Unknown ids yield store.ErrNotFound.
func (s *ChatService) SubmitFeedback(ctx context.Context, cacheID string, isHelpful bool) (*store.CacheEntry, error) {
	ctx, span := tracer.Start(ctx, "ChatService.SubmitFeedback")
	defer span.End()

	cacheID = strings.TrimSpace(cacheID)
	if cacheID == "" {
		err := &ValidationError{Field: "cacheId", Message: "must not be empty"}
		failSpan(span, err)
		return nil, err
	}

	entry, err := s.store.IncrementFeedback(ctx, cacheID, isHelpful)
	if err != nil {
		failSpan(span, err)
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("record feedback: %w", err)
	}

	kind := "unhelpful"
	if isHelpful {
		kind = "helpful"
	}
	metrics.Feedback.WithLabelValues(kind).Inc()
	return entry, nil
}

// SubmitContact validates a contact form and stores it as a lead. The
// notification, if configured, runs in the background.
func (s *ChatService) SubmitContact(ctx context.Context, contact leads.Contact) (*store.Lead, error) {
	ctx, span := tracer.Start(ctx, "ChatService.SubmitContact")
	defer span.End()

	contact.Normalize()
	fieldErrs, err := leads.ValidateContact(contact)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	if len(fieldErrs) > 0 {
		verr := &ValidationError{Field: fieldErrs[0].Field, Message: fieldErrs[0].Message}
		failSpan(span, verr)
		return nil, verr
	}

	lead := &store.Lead{
		FullName:     contact.FullName,
		ContactEmail: contact.ContactEmail,
		ContactNo:    contact.ContactNo,
		Status:       store.LeadStatusNew,
		Interest:     contact.Interest,
		Source:       store.LeadSourceForms,
	}
	if err := s.store.CreateLead(ctx, lead); err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("create contact lead: %w", err)
	}
	metrics.LeadsCreated.WithLabelValues(lead.Source).Inc()

	if s.notifier != nil {
		created := *lead
		s.enqueue(tasks.Task{
			Name: "notify_lead",
			Run: func(ctx context.Context) error {
				return s.notifier.NotifyLead(ctx, &created)
			},
		})
	}
	return lead, nil
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

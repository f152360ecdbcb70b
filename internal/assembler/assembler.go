// Package assembler turns query results into structured responses and
// records each answered question in the session context.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/adapter/llm"
	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
	"github.com/AbhigyanVE/ScrumMaster/internal/logging"
	"github.com/AbhigyanVE/ScrumMaster/internal/patterns"
	"github.com/AbhigyanVE/ScrumMaster/internal/router"
)

// DefaultSummaryRunes bounds the summary stored in an exchange.
const DefaultSummaryRunes = 500

// UnavailableNote is attached when prose analysis could not be produced.
const UnavailableNote = "analysis is temporarily unavailable"

// Summarizer writes prose for query results.
type Summarizer interface {
	Summarize(ctx context.Context, req llm.SummaryRequest) (string, error)
}

// ContextAppender records exchanges in a session's context.
type ContextAppender interface {
	Append(ctx context.Context, sessionID string, ex domain.Exchange) (*domain.Session, error)
}

// Input is everything needed to answer one routed query.
type Input struct {
	SessionID string
	Route     *router.Route
	Rows      *domain.ResultSet
}

// Assembler builds responses.
type Assembler struct {
	summarizer   Summarizer
	context      ContextAppender
	patterns     *patterns.Library
	logger       *zap.Logger
	now          func() time.Time
	summaryRunes int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock sets the time used for deadline checks and exchange timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithLogger sets the assembler's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Assembler) { a.logger = logger }
}

// WithSummaryRunes bounds the summary stored per exchange.
func WithSummaryRunes(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.summaryRunes = n
		}
	}
}

// WithPatterns sets the library used for rephrasing suggestions.
func WithPatterns(lib *patterns.Library) Option {
	return func(a *Assembler) { a.patterns = lib }
}

// New creates an assembler.
func New(summarizer Summarizer, appender ContextAppender, opts ...Option) *Assembler {
	a := &Assembler{
		summarizer:   summarizer,
		context:      appender,
		patterns:     patterns.Default(),
		logger:       zap.NewNop(),
		now:          time.Now,
		summaryRunes: DefaultSummaryRunes,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the response for a data route and appends it to the
// session context. Rows that do not fit the intent's schema degrade to a
// GenericAnswer. The only error is a failure to record the exchange.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*domain.Response, error) {
	log := logging.FromContext(ctx, a.logger)
	route := in.Route
	now := a.now()

	kind := domain.KindForIntent(route.Intent.Category)
	resp, facts, err := build(kind, in.Rows, now)
	if err != nil {
		log.Warn("result does not fit response schema",
			zap.String("kind", string(kind)), zap.Error(err))
		resp, facts, _ = build(domain.KindGenericAnswer, in.Rows, now)
	}
	resp.Status = domain.StatusOK
	a.decorate(resp, in)
	resp.Summary = facts
	if route.Description != "" && in.Rows.Len() > 0 {
		resp.Summary = route.Description + ". " + facts
	}

	if a.needsSummary(route) && in.Rows.Len() > 0 {
		prose, err := a.summarizer.Summarize(ctx, llm.SummaryRequest{
			SessionID: in.SessionID,
			Intent:    route.Intent.Category,
			Depth:     route.Intent.Depth,
			Question:  route.Intent.Effective(),
			SQL:       route.SQL,
			Rows:      in.Rows,
			Facts:     facts,
		})
		if err != nil {
			log.Warn("summarisation failed", zap.Error(err))
			resp = a.degrade(resp, in)
		} else {
			resp.Summary = prose
		}
	}

	if resp.Kind == domain.KindGenericAnswer && in.Rows.Len() == 0 && resp.Generic != nil {
		resp.Generic.Suggestions = a.patterns.Suggest(route.Intent.Query, 3)
	}

	if err := a.record(ctx, in.SessionID, route.Intent, route.Project, resp.Summary); err != nil {
		return nil, err
	}
	return resp, nil
}

// Clarify asks the user to name a project. The question is recorded so a
// bare project key can answer it.
func (a *Assembler) Clarify(ctx context.Context, sessionID string, in domain.Intent, scope *domain.AmbiguousScopeError) (*domain.Response, error) {
	candidates := scope.Candidates
	text := "Which project do you mean?"
	if len(candidates) > 0 {
		text = fmt.Sprintf("Which project do you mean? Available projects: %s.", strings.Join(candidates, ", "))
	}
	if scope.Unknown != "" {
		text = fmt.Sprintf("I couldn't find a project called %s. %s", scope.Unknown, text)
	}
	resp := &domain.Response{
		Kind:      domain.KindGenericAnswer,
		Status:    domain.StatusClarificationNeeded,
		SessionID: sessionID,
		Intent:    in.Category,
		Depth:     in.Depth,
		Pattern:   in.Pattern,
		Summary:   text,
		Generic:   &domain.GenericAnswer{Text: text, Suggestions: candidates},
	}
	if err := a.record(ctx, sessionID, in, "", text); err != nil {
		return nil, err
	}
	return resp, nil
}

var (
	greetingText = "Hello! I'm your Scrum Master assistant. Ask me about project health, standups, stuck or overdue tickets, or team workload."
	farewellText = "Goodbye! I've cleared our conversation."
)

// Canned returns the reply to a greeting or farewell. Nothing is recorded.
func Canned(sessionID string, in domain.Intent) *domain.Response {
	text := greetingText
	if in.Category == domain.IntentFarewell {
		text = farewellText
	}
	return &domain.Response{
		Kind:      domain.KindGenericAnswer,
		Status:    domain.StatusOK,
		SessionID: sessionID,
		Intent:    in.Category,
		Depth:     in.Depth,
		Summary:   text,
		Generic:   &domain.GenericAnswer{Text: text},
	}
}

// Failure returns the response for a query that could not be answered. The
// context is left untouched.
func Failure(sessionID string, in domain.Intent, err error) *domain.Response {
	resp := &domain.Response{
		Kind:      domain.KindGenericAnswer,
		SessionID: sessionID,
		Intent:    in.Category,
		Depth:     in.Depth,
		Pattern:   in.Pattern,
	}

	var unsafe *domain.UnsafeQueryError
	var qerr *domain.QueryError
	switch {
	case errors.As(err, &unsafe):
		resp.Status = domain.StatusRefused
		resp.Summary = "I can only run read-only queries, so I did not answer that one (" + unsafe.Reason + ")."
		resp.SQL = unsafe.SQL
	case errors.As(err, &qerr):
		resp.Status = domain.StatusError
		resp.Summary = "Sorry, I could not run the query for that question. Try rephrasing it."
		resp.SQL = qerr.SQL
	case domain.IsServiceUnavailable(err):
		resp.Status = domain.StatusDegraded
		resp.Summary = "Sorry, " + UnavailableNote + ". Please try again shortly."
		resp.Notice = UnavailableNote
	default:
		resp.Status = domain.StatusError
		resp.Summary = "Sorry, something went wrong while answering that question."
	}
	resp.Generic = &domain.GenericAnswer{Text: resp.Summary}
	return resp
}

// needsSummary reports whether prose synthesis is required.
func (a *Assembler) needsSummary(route *router.Route) bool {
	if a.summarizer == nil {
		return false
	}
	if route.Intent.Advanced() {
		return true
	}
	if route.Kind != router.RouteGenerated {
		return false
	}
	switch route.Intent.Category {
	case domain.IntentHealth, domain.IntentStandup, domain.IntentGeneral:
		return true
	}
	return false
}

func (a *Assembler) decorate(resp *domain.Response, in Input) {
	resp.SessionID = in.SessionID
	resp.Intent = in.Route.Intent.Category
	resp.Depth = in.Route.Intent.Depth
	resp.Pattern = in.Route.Pattern
	resp.Project = in.Route.Project
	resp.SQL = in.Route.SQL
	if in.Route.Notice != "" {
		resp.Status = domain.StatusDegraded
		if resp.Notice == "" {
			resp.Notice = in.Route.Notice
		} else {
			resp.Notice += "; " + in.Route.Notice
		}
	}
}

// degrade replaces a response with a GenericAnswer over the raw rows.
func (a *Assembler) degrade(resp *domain.Response, in Input) *domain.Response {
	generic := genericAnswer(in.Rows)
	if resp.Summary != "" {
		generic.Text = resp.Summary
	}
	out := &domain.Response{
		Kind:    domain.KindGenericAnswer,
		Status:  domain.StatusDegraded,
		Summary: generic.Text,
		Notice:  UnavailableNote,
		Generic: generic,
	}
	a.decorate(out, in)
	return out
}

func (a *Assembler) record(ctx context.Context, sessionID string, in domain.Intent, project, summary string) error {
	if a.context == nil {
		return nil
	}
	_, err := a.context.Append(ctx, sessionID, domain.Exchange{
		ID:        "ex_" + uuid.New().String()[:8],
		Query:     in.Query,
		Intent:    in.Category,
		Pattern:   in.Pattern,
		Depth:     in.Depth,
		Previous:  in.Previous,
		Project:   project,
		Summary:   truncateRunes(summary, a.summaryRunes),
		CreatedAt: a.now(),
	})
	if err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

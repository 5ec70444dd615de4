package api

import (
	"time"

	"github.com/poiesic/stanza/core"
)

// ingestRequest is the body of POST /v1/fragments. Either Text or Texts may be set.
type ingestRequest struct {
	Text     string            `json:"text"`
	Texts    []string          `json:"texts"`
	Metadata map[string]string `json:"metadata"`
}

// textRequest is the body of POST /v1/matches and POST /v1/patterns.
type textRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type analysisResponse struct {
	Themes        []string `json:"themes"`
	RhymePatterns []string `json:"rhyme_patterns"`
	Mood          string   `json:"mood"`
	ImageryTags   []string `json:"imagery_tags"`
}

type fragmentResponse struct {
	ID         uint64            `json:"id"`
	Text       string            `json:"text"`
	Analysis   *analysisResponse `json:"analysis,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	InsertedAt time.Time         `json:"inserted_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type fragmentListResponse struct {
	Fragments []fragmentResponse `json:"fragments"`
	Total     int                `json:"total"`
}

type matchResponse struct {
	CandidateID uint64   `json:"candidate_id"`
	Score       float64  `json:"score"`
	Reasons     []string `json:"reasons"`
	Text        string   `json:"text"`
	Adaptation  string   `json:"adaptation,omitempty"`
}

type matchListResponse struct {
	Results []matchResponse `json:"results"`
}

type patternsResponse struct {
	Patterns []string `json:"patterns"`
}

func fragmentToResponse(f *core.Fragment) fragmentResponse {
	resp := fragmentResponse{
		ID:         uint64(f.Id),
		Text:       f.Text,
		Metadata:   f.Metadata,
		InsertedAt: f.InsertedAt,
		UpdatedAt:  f.UpdatedAt,
	}
	if f.Analyzed() {
		a := core.SanitizeAnalysis(f.Analysis)
		resp.Analysis = &analysisResponse{
			Themes:        a.Themes,
			RhymePatterns: a.RhymePatterns,
			Mood:          a.Mood,
			ImageryTags:   a.ImageryTags,
		}
	}
	return resp
}

func fragmentsToResponse(fragments []*core.Fragment) []fragmentResponse {
	out := make([]fragmentResponse, len(fragments))
	for i, f := range fragments {
		out[i] = fragmentToResponse(f)
	}
	return out
}

func matchToResponse(r *core.MatchResult) matchResponse {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return matchResponse{
		CandidateID: uint64(r.CandidateID),
		Score:       r.Score,
		Reasons:     reasons,
		Text:        r.Text,
		Adaptation:  r.Adaptation,
	}
}

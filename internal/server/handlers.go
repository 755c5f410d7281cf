package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"karsaazai/internal/app"
	"karsaazai/internal/usertoken"
)

func (s *Server) handleSupportAsk(w http.ResponseWriter, r *http.Request, ident usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req app.AskRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}
	result, err := s.app.Ask(r.Context(), ident.UID, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request, ident usertoken.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	threads, err := s.app.ListThreads(ident.UID, queryLimit(r, 20))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

func (s *Server) handleThreadMessages(w http.ResponseWriter, r *http.Request, ident usertoken.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/ai/support/threads/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "messages" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	messages, err := s.app.ListThreadMessages(ident.UID, parts[0], queryLimit(r, 50))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

type textRequest struct {
	Text         string `json:"text"`
	SourceLang   string `json:"sourceLang"`
	TargetLang   string `json:"targetLang"`
	MaxSentences int    `json:"maxSentences"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request, _ usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req textRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.SourceLang) == "" || strings.TrimSpace(req.TargetLang) == "" {
		writeError(w, http.StatusBadRequest, "text, sourceLang and targetLang required")
		return
	}
	result, err := s.app.Translate(r.Context(), req.Text, req.SourceLang, req.TargetLang)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request, _ usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req textRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text required")
		return
	}
	summary, err := s.app.Summarize(r.Context(), req.Text, req.MaxSentences)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request, _ usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req textRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text required")
		return
	}
	result, err := s.app.Sentiment(r.Context(), req.Text)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, _ usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req textRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text required")
		return
	}
	result, err := s.app.Analyze(r.Context(), req.Text, req.MaxSentences)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCaption(w http.ResponseWriter, r *http.Request, _ usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req struct {
		ImageURL string `json:"imageUrl"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		writeError(w, http.StatusBadRequest, "imageUrl required")
		return
	}
	caption, err := s.app.CaptionImage(r.Context(), req.ImageURL)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"caption": caption})
}

func (s *Server) handleSpeechToText(w http.ResponseWriter, r *http.Request, _ usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req struct {
		AudioBase64 string `json:"audioBase64"`
	}
	if !decodeJSON(w, r, maxMediaBody, &req) {
		return
	}
	if strings.TrimSpace(req.AudioBase64) == "" {
		writeError(w, http.StatusBadRequest, "audioBase64 required")
		return
	}
	result, err := s.app.Transcribe(r.Context(), req.AudioBase64)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleVerifyCNIC(w http.ResponseWriter, r *http.Request, ident usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req app.CNICVerifyRequest
	if !decodeJSON(w, r, maxMediaBody, &req) {
		return
	}
	if strings.TrimSpace(req.FrontBase64) == "" || strings.TrimSpace(req.BackBase64) == "" {
		writeError(w, http.StatusBadRequest, "cnicFrontBase64 and cnicBackBase64 required")
		return
	}
	result, err := s.app.VerifyCNIC(r.Context(), ident.UID, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleKYCFace(w http.ResponseWriter, r *http.Request, ident usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req struct {
		CNICImage   string `json:"cnicImage"`
		SelfieImage string `json:"selfieImage"`
	}
	if !decodeJSON(w, r, maxMediaBody, &req) {
		return
	}
	if strings.TrimSpace(req.CNICImage) == "" || strings.TrimSpace(req.SelfieImage) == "" {
		writeError(w, http.StatusBadRequest, "cnicImage and selfieImage required")
		return
	}
	result, err := s.app.FaceVerify(r.Context(), ident.UID, req.CNICImage, req.SelfieImage)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, result)
}

func (s *Server) handleKYCShop(w http.ResponseWriter, r *http.Request, ident usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req struct {
		ShopImage string `json:"shopImage"`
	}
	if !decodeJSON(w, r, maxMediaBody, &req) {
		return
	}
	if strings.TrimSpace(req.ShopImage) == "" {
		writeError(w, http.StatusBadRequest, "shopImage required")
		return
	}
	result, err := s.app.ShopVerify(r.Context(), ident.UID, req.ShopImage)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, result)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request, _ usertoken.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	metrics, err := s.app.Metrics()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": metrics})
}

func (s *Server) handleExplainMetrics(w http.ResponseWriter, r *http.Request, _ usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r) {
		return
	}
	var req struct {
		Metrics json.RawMessage `json:"metrics"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	if len(req.Metrics) == 0 {
		writeError(w, http.StatusBadRequest, "metrics required")
		return
	}
	explanation, err := s.app.ExplainMetrics(r.Context(), req.Metrics)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
}

func writeRaw(w http.ResponseWriter, status int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/toobased/socials-backend/internal/apperr"
	"github.com/toobased/socials-backend/internal/model"
	"github.com/toobased/socials-backend/internal/service"
)

const maxBodyBytes = 1 << 20

type Server struct {
	svc *service.Service
}

func NewServer(svc *service.Service) *Server {
	return &Server{svc: svc}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.indexHandler)

	mux.HandleFunc("GET /bots_tasks/{$}", s.listTasksHandler)
	mux.HandleFunc("POST /bots_tasks/{$}", s.createTaskHandler)
	mux.HandleFunc("GET /bots_tasks/{id}", s.getTaskHandler)
	mux.HandleFunc("PATCH /bots_tasks/{id}", s.patchTaskHandler)
	mux.HandleFunc("DELETE /bots_tasks/{id}", s.deleteTaskHandler)

	mux.HandleFunc("GET /task_types/{$}", s.listTaskTypesHandler)

	mux.HandleFunc("GET /bots/{$}", s.listBotsHandler)
	mux.HandleFunc("POST /bots/{$}", s.createBotHandler)
	mux.HandleFunc("POST /bots/check_by_token", s.checkTokenHandler)
	mux.HandleFunc("GET /bots/{id}", s.getBotHandler)
	mux.HandleFunc("PATCH /bots/{id}", s.patchBotHandler)
	mux.HandleFunc("DELETE /bots/{id}", s.deleteBotHandler)

	mux.HandleFunc("GET /social_sources/{$}", s.listSourcesHandler)
	mux.HandleFunc("POST /social_sources/{$}", s.createSourceHandler)
	mux.HandleFunc("GET /social_sources/{id}", s.getSourceHandler)
	mux.HandleFunc("PATCH /social_sources/{id}", s.replaceSourceHandler)
	mux.HandleFunc("DELETE /social_sources/{id}", s.deleteSourceHandler)

	mux.HandleFunc("GET /social/get_post_by_url", s.postPlaceholderHandler)
	mux.HandleFunc("POST /social/get_post_by_url", s.postByURLHandler)

	return logRequests(cors(mux))
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello there!"))
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	q, err := taskQueryFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tasks, err := s.svc.Tasks.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var in model.BotTaskCreate
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.svc.Tasks.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := s.svc.Tasks.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if task == nil {
		writeError(w, apperr.NotFoundf("task %s", id))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) patchTaskHandler(w http.ResponseWriter, r *http.Request) {
	var u model.BotTaskUpdate
	if err := decodeBody(w, r, &u); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.svc.Tasks.Patch(r.Context(), r.PathValue("id"), u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.svc.Tasks.Delete(r.Context(), model.BotTaskQuery{ID: &id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResult{DeletedCount: deleted})
}

func (s *Server) listTaskTypesHandler(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.TaskTypes.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (s *Server) listBotsHandler(w http.ResponseWriter, r *http.Request) {
	q, err := botQueryFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bots, err := s.svc.Bots.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bots)
}

func (s *Server) createBotHandler(w http.ResponseWriter, r *http.Request) {
	var in model.BotCreate
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	bot, err := s.svc.Bots.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

type checkTokenRequest struct {
	Platform    model.Platform `json:"platform"`
	AccessToken string         `json:"access_token"`
}

type checkTokenResponse struct {
	Platform model.Platform `json:"platform"`
	Profile  model.Profile  `json:"profile"`
}

func (s *Server) checkTokenHandler(w http.ResponseWriter, r *http.Request) {
	var in checkTokenRequest
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	profile, err := s.svc.Bots.CheckByToken(r.Context(), in.Platform, in.AccessToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkTokenResponse{Platform: in.Platform, Profile: profile})
}

func (s *Server) getBotHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	bot, err := s.svc.Bots.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if bot == nil {
		writeError(w, apperr.NotFoundf("bot %s", id))
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) patchBotHandler(w http.ResponseWriter, r *http.Request) {
	var u model.BotUpdate
	if err := decodeBody(w, r, &u); err != nil {
		writeError(w, err)
		return
	}
	bot, err := s.svc.Bots.Patch(r.Context(), r.PathValue("id"), u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) deleteBotHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.svc.Bots.Delete(r.Context(), model.BotQuery{ID: &id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResult{DeletedCount: deleted})
}

func (s *Server) listSourcesHandler(w http.ResponseWriter, r *http.Request) {
	q, err := sourceQueryFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sources, err := s.svc.Sources.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) createSourceHandler(w http.ResponseWriter, r *http.Request) {
	var in model.SocialSourceCreate
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	source, err := s.svc.Sources.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, source)
}

func (s *Server) getSourceHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	source, err := s.svc.Sources.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if source == nil {
		writeError(w, apperr.NotFoundf("social source %s", id))
		return
	}
	writeJSON(w, http.StatusOK, source)
}

func (s *Server) replaceSourceHandler(w http.ResponseWriter, r *http.Request) {
	var in model.SocialSourceCreate
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	source, err := s.svc.Sources.Replace(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, source)
}

func (s *Server) deleteSourceHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.svc.Sources.Delete(r.Context(), model.SocialSourceQuery{ID: &id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResult{DeletedCount: deleted})
}

func (s *Server) postPlaceholderHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "")
}

type postByURLRequest struct {
	Platform model.Platform `json:"platform"`
	URL      string         `json:"url"`
}

func (s *Server) postByURLHandler(w http.ResponseWriter, r *http.Request) {
	var in postByURLRequest
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	post, err := s.svc.Posts.GetByURL(r.Context(), in.Platform, in.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type deleteResult struct {
	DeletedCount int64 `json:"deleted_count"`
}

func botQueryFromRequest(r *http.Request) (model.BotQuery, error) {
	var q model.BotQuery
	var err error
	values := r.URL.Query()
	q.ID = param(values.Get("id"))
	q.Username = param(values.Get("username"))
	if q.Platform, err = platformParam(values.Get("platform")); err != nil {
		return model.BotQuery{}, err
	}
	if value := param(values.Get("status")); value != nil {
		status, err := model.ParseBotStatus(*value)
		if err != nil {
			return model.BotQuery{}, err
		}
		q.Status = &status
	}
	return q, nil
}

func taskQueryFromRequest(r *http.Request) (model.BotTaskQuery, error) {
	var q model.BotTaskQuery
	var err error
	values := r.URL.Query()
	q.ID = param(values.Get("id"))
	q.BotID = param(values.Get("bot_id"))
	if value := param(values.Get("task_type")); value != nil {
		taskType := strings.ToLower(*value)
		q.TaskType = &taskType
	}
	if q.Platform, err = platformParam(values.Get("platform")); err != nil {
		return model.BotTaskQuery{}, err
	}
	if value := param(values.Get("status")); value != nil {
		status, err := model.ParseTaskStatus(*value)
		if err != nil {
			return model.BotTaskQuery{}, err
		}
		q.Status = &status
	}
	return q, nil
}

func sourceQueryFromRequest(r *http.Request) (model.SocialSourceQuery, error) {
	var q model.SocialSourceQuery
	var err error
	values := r.URL.Query()
	q.ID = param(values.Get("id"))
	q.URL = param(values.Get("url"))
	if q.Platform, err = platformParam(values.Get("platform")); err != nil {
		return model.SocialSourceQuery{}, err
	}
	return q, nil
}

// param returns nil for an absent or blank query value.
func param(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func platformParam(value string) (*model.Platform, error) {
	raw := param(value)
	if raw == nil {
		return nil, nil
	}
	p, err := model.ParsePlatform(*raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if apperr.IsClassified(err) {
			return err
		}
		return apperr.Validationf("invalid request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

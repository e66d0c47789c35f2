package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"walipheros/internal/format"
	"walipheros/internal/middleware"
	"walipheros/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

var errNotFound = errors.New("not found")

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	respondJSON(w, http.StatusOK, session.Store.Snapshot())
}

// ResetDashboard is the factory reset: every stored document is deleted in one
// transaction and the in-memory state returns to the fresh-user defaults.
func (h *Handler) ResetDashboard(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !req.Confirm {
		respondError(w, http.StatusBadRequest, "confirmation_required")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.sessions.docs.DeleteAll(r.Context(), tx, userID)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to reset dashboard")
		return
	}
	session.Store.Replace(models.NewState())
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

/* --- Todos --- */

type addTodoRequest struct {
	Text     string `json:"text"`
	LongTerm bool   `json:"longTerm"`
}

func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var todos []models.Todo
	session.Store.View(func(st *models.State) {
		todos = append(todos, st.Todos...)
	})
	respondJSON(w, http.StatusOK, todos)
}

func (h *Handler) AddTodo(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req addTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(w, http.StatusBadRequest, "missing text")
		return
	}
	now := time.Now()
	days, tag := 2, "2d"
	if req.LongTerm {
		days, tag = 7, "7d"
	}
	todo := models.Todo{
		ID:          session.todoIDs.next(now),
		Text:        text,
		CreatedAt:   now.UnixMilli(),
		Deadline:    now.Add(time.Duration(days) * 24 * time.Hour).UnixMilli(),
		DurationTag: tag,
	}
	err := session.Store.Mutate(r.Context(), func(st *models.State) error {
		st.Todos = append(st.Todos, todo)
		return nil
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to add task")
		return
	}
	respondJSON(w, http.StatusCreated, todo)
}

func (h *Handler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	err = session.Store.Mutate(r.Context(), func(st *models.State) error {
		for i := range st.Todos {
			if st.Todos[i].ID == id {
				st.Todos[i].Completed = !st.Todos[i].Completed
				return nil
			}
		}
		return errNotFound
	})
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update task")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}

func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	err = session.Store.Mutate(r.Context(), func(st *models.State) error {
		for i := range st.Todos {
			if st.Todos[i].ID == id {
				st.Todos = append(st.Todos[:i], st.Todos[i+1:]...)
				return nil
			}
		}
		return errNotFound
	})
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete task")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

/* --- Schedule --- */

func (h *Handler) ListSchedule(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var schedule []models.Subject
	session.Store.View(func(st *models.State) {
		schedule = append(schedule, st.Schedule...)
	})
	respondJSON(w, http.StatusOK, schedule)
}

func validSubject(subj models.Subject) bool {
	if strings.TrimSpace(subj.Name) == "" || subj.Weekday < 0 || subj.Weekday > 6 {
		return false
	}
	if _, err := format.ParseClock(subj.Start); err != nil {
		return false
	}
	if _, err := format.ParseClock(subj.End); err != nil {
		return false
	}
	return true
}

func (h *Handler) AddSubject(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var subj models.Subject
	if err := json.NewDecoder(r.Body).Decode(&subj); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !validSubject(subj) {
		respondError(w, http.StatusBadRequest, "invalid subject")
		return
	}
	err := session.Store.Mutate(r.Context(), func(st *models.State) error {
		st.Schedule = append(st.Schedule, subj)
		return nil
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to add subject")
		return
	}
	respondJSON(w, http.StatusCreated, subj)
}

func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid index")
		return
	}
	var subj models.Subject
	if err := json.NewDecoder(r.Body).Decode(&subj); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !validSubject(subj) {
		respondError(w, http.StatusBadRequest, "invalid subject")
		return
	}
	err = session.Store.Mutate(r.Context(), func(st *models.State) error {
		if index < 0 || index >= len(st.Schedule) {
			return errNotFound
		}
		st.Schedule[index] = subj
		return nil
	})
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update subject")
		return
	}
	respondJSON(w, http.StatusOK, subj)
}

func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid index")
		return
	}
	err = session.Store.Mutate(r.Context(), func(st *models.State) error {
		if index < 0 || index >= len(st.Schedule) {
			return errNotFound
		}
		st.Schedule = append(st.Schedule[:index], st.Schedule[index+1:]...)
		return nil
	})
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete subject")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

/* --- Notes, links, preferences --- */

type notesRequest struct {
	Content string `json:"content"`
}

func (h *Handler) GetNotes(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var content string
	session.Store.View(func(st *models.State) {
		content = st.Notes
	})
	respondJSON(w, http.StatusOK, notesRequest{Content: content})
}

func (h *Handler) PutNotes(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	err := session.Store.Mutate(r.Context(), func(st *models.State) error {
		st.Notes = req.Content
		return nil
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to save notes")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var links []models.Link
	session.Store.View(func(st *models.State) {
		links = append(links, st.Links...)
	})
	respondJSON(w, http.StatusOK, links)
}

func (h *Handler) AddLink(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var link models.Link
	if err := json.NewDecoder(r.Body).Decode(&link); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(link.Title) == "" || strings.TrimSpace(link.URL) == "" {
		respondError(w, http.StatusBadRequest, "missing title or url")
		return
	}
	err := session.Store.Mutate(r.Context(), func(st *models.State) error {
		st.Links = append(st.Links, link)
		return nil
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to add link")
		return
	}
	respondJSON(w, http.StatusCreated, link)
}

func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid index")
		return
	}
	err = session.Store.Mutate(r.Context(), func(st *models.State) error {
		if index < 0 || index >= len(st.Links) {
			return errNotFound
		}
		st.Links = append(st.Links[:index], st.Links[index+1:]...)
		return nil
	})
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "link not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete link")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var prefs models.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	err := session.Store.Mutate(r.Context(), func(st *models.State) error {
		st.Preferences = prefs
		return nil
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to save preferences")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

/* --- Notifications --- */

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	var notifications []models.Notification
	session.Store.View(func(st *models.State) {
		notifications = append(notifications, st.Notifications...)
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unread":        session.Feed.Unread(),
	})
}

func (h *Handler) AcknowledgeNotification(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := session.Feed.Acknowledge(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to acknowledge")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	if session == nil {
		return
	}
	if err := session.Feed.Clear(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to clear notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

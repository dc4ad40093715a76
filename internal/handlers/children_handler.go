package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"childsubs/internal/logger"
	"childsubs/internal/models"
	"childsubs/internal/security"
	"childsubs/internal/service"
)

// ChildrenHandler serves the parent's "My Children" page and its actions
type ChildrenHandler struct {
	childService *service.ChildService
	nonces       *security.NonceManager
	templates    *template.Template
	logger       *zap.Logger
}

// NewChildrenHandler creates a new children handler
func NewChildrenHandler(childService *service.ChildService, nonces *security.NonceManager, templates *template.Template, logger *zap.Logger) *ChildrenHandler {
	return &ChildrenHandler{
		childService: childService,
		nonces:       nonces,
		templates:    templates,
		logger:       logger,
	}
}

// resultNotices maps the redirect flags to the notice shown after an action
var resultNotices = []struct {
	flag    string
	message string
}{
	{"child_added", MsgChildAdded},
	{"child_updated", MsgChildUpdated},
	{"child_deleted", MsgChildDeleted},
}

func (h *ChildrenHandler) view(r *http.Request) (*MyChildrenViewData, error) {
	user := GetUserFromContext(r.Context())
	data := &MyChildrenViewData{Page: Page{Title: "My Children", User: user}}
	if user == nil {
		return data, nil
	}

	var err error
	if data.Children, err = h.childService.ListChildren(r.Context(), user.ID); err != nil {
		return nil, err
	}
	if data.Nonce, err = h.nonces.Create(security.ActionChildManager, user.ID); err != nil {
		return nil, err
	}
	if data.AjaxNonce, err = h.nonces.Create(security.ActionChildSubscription, user.ID); err != nil {
		return nil, err
	}

	q := r.URL.Query()
	for _, n := range resultNotices {
		if q.Get(n.flag) == "1" {
			data.Notice = n.message
		}
	}
	if q.Get("error") == "1" {
		data.Error = MsgGenericError
	}

	// Only an owned, published child pre-fills the edit form
	if q.Get("action") == "edit_child" {
		if id, err := strconv.ParseInt(q.Get("child_id"), 10, 64); err == nil {
			child, err := h.childService.GetChildForOwner(r.Context(), id, user.ID)
			switch {
			case err == nil:
				data.Form = childFormFrom(child)
			case !isChildAccessError(err):
				return nil, err
			}
		}
	}
	return data, nil
}

// MyChildren renders the children page, or a login prompt when signed out
func (h *ChildrenHandler) MyChildren(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "my_children.tmpl")
}

// Fragment renders the children panel without page chrome for embedding
func (h *ChildrenHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "children_panel")
}

func (h *ChildrenHandler) render(w http.ResponseWriter, r *http.Request, name string) {
	data, err := h.view(r)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading children", err)
		return
	}
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error rendering children template", err)
	}
}

// SaveChild handles the add and update submissions of the child form
func (h *ChildrenHandler) SaveChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	log := logger.FromContext(r.Context(), h.logger).With(zap.Int64("user_id", user.ID))

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}
	if err := h.nonces.Verify(r.PostFormValue(FieldChildManagerNonce), security.ActionChildManager, user.ID); err != nil {
		log.Warn("child form nonce rejected", zap.Error(err))
		http.Error(w, MsgSecurityCheckFailed, http.StatusForbidden)
		return
	}

	in := service.ChildInput{
		Name:        r.PostFormValue("child_name"),
		DateOfBirth: r.PostFormValue("dob"),
		Gender:      r.PostFormValue("gender"),
		Age:         r.PostFormValue("age"),
		Club:        r.PostFormValue("club"),
	}

	switch {
	case r.PostForm.Has("update_child"):
		id, err := strconv.ParseInt(r.PostFormValue("child_id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, MsgInvalidChildID, http.StatusBadRequest)
			return
		}
		if _, err := h.childService.UpdateChild(r.Context(), id, user.ID, in); err != nil {
			if isChildAccessError(err) {
				http.Error(w, MsgNoEditPermission, http.StatusForbidden)
				return
			}
			log.Warn("child update failed", zap.Int64("child_id", id), zap.Error(err))
			redirectWithFlag(w, r, "error")
			return
		}
		redirectWithFlag(w, r, "child_updated")

	case r.PostForm.Has("add_child"):
		if _, err := h.childService.CreateChild(r.Context(), user.ID, in); err != nil {
			log.Warn("child create failed", zap.Error(err))
			redirectWithFlag(w, r, "error")
			return
		}
		redirectWithFlag(w, r, "child_added")

	default:
		http.Redirect(w, r, myChildrenPath, http.StatusSeeOther)
	}
}

// DeleteChild soft deletes a child from the non-script form
func (h *ChildrenHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	log := logger.FromContext(r.Context(), h.logger).With(zap.Int64("user_id", user.ID))

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}
	if err := h.nonces.Verify(r.PostFormValue(FieldChildManagerNonce), security.ActionChildManager, user.ID); err != nil {
		log.Warn("child delete nonce rejected", zap.Error(err))
		http.Error(w, MsgSecurityCheckFailed, http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, MsgInvalidChildID, http.StatusBadRequest)
		return
	}

	if err := h.childService.TrashChild(r.Context(), id, user.ID); err != nil {
		if isChildAccessError(err) {
			// Someone else's child: nothing happens
			http.Redirect(w, r, myChildrenPath, http.StatusSeeOther)
			return
		}
		log.Error("child delete failed", zap.Int64("child_id", id), zap.Error(err))
		redirectWithFlag(w, r, "error")
		return
	}
	redirectWithFlag(w, r, "child_deleted")
}

// AjaxDeleteChild is the script endpoint behind the Delete link. It always
// answers with the success/data envelope.
func (h *ChildrenHandler) AjaxDeleteChild(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	if err := r.ParseForm(); err != nil {
		ajaxError(w, r, http.StatusBadRequest, ErrInvalidFormData)
		return
	}

	var userID int64
	user := GetUserFromContext(r.Context())
	if user != nil {
		userID = user.ID
	}
	if err := h.nonces.Verify(r.PostFormValue(FieldAjaxNonce), security.ActionChildSubscription, userID); err != nil {
		log.Warn("ajax delete nonce rejected", zap.Int64("user_id", userID), zap.Error(err))
		ajaxError(w, r, http.StatusForbidden, MsgSecurityCheckFailed)
		return
	}
	if user == nil {
		ajaxError(w, r, http.StatusOK, MsgNoDeletePermission)
		return
	}

	id, err := strconv.ParseInt(r.PostFormValue("child_id"), 10, 64)
	if err != nil || id == 0 {
		ajaxError(w, r, http.StatusOK, MsgInvalidChildID)
		return
	}

	if err := h.childService.TrashChild(r.Context(), id, user.ID); err != nil {
		if isChildAccessError(err) {
			ajaxError(w, r, http.StatusOK, MsgNoDeleteChildPermission)
			return
		}
		log.Error("ajax child delete failed", zap.Int64("child_id", id), zap.Error(err))
		ajaxError(w, r, http.StatusOK, MsgDeleteFailed)
		return
	}
	ajaxSuccess(w, r, MsgChildDeleted)
}

// isChildAccessError covers children that are missing, trashed or owned by
// someone else; callers treat them all as "not yours"
func isChildAccessError(err error) bool {
	return errors.Is(err, service.ErrNotChildOwner) ||
		errors.Is(err, service.ErrChildNotFound) ||
		errors.Is(err, service.ErrInvalidChildID)
}

func redirectWithFlag(w http.ResponseWriter, r *http.Request, flag string) {
	http.Redirect(w, r, myChildrenPath+"?"+url.Values{flag: {"1"}}.Encode(), http.StatusSeeOther)
}

// childrenForScript projects children onto the checkout script's data shape
func childrenForScript(children []models.Child) []checkoutChild {
	out := make([]checkoutChild, 0, len(children))
	for _, c := range children {
		out = append(out, checkoutChild{
			ID:     c.ID,
			Name:   c.Name,
			DOB:    c.DateOfBirth,
			Gender: c.Gender,
			Age:    c.Age,
			Club:   c.Club,
		})
	}
	return out
}

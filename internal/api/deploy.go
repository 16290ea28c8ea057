package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/deploy"
	"github.com/RichardoC/dehost/internal/domainlink"
	"github.com/RichardoC/dehost/internal/ipfs"
	"github.com/RichardoC/dehost/internal/ui"
)

const defaultDeploymentsLimit = 50

// deployStatus maps an action error onto an HTTP status.
func deployStatus(err error) int {
	var de *deploy.Error
	if !errors.As(err, &de) {
		return http.StatusBadGateway
	}
	switch de.Code {
	case deploy.ErrorInProgress:
		return http.StatusConflict
	case deploy.ErrorNoContent, deploy.ErrorUnextractable, deploy.ErrorEmptyShareText:
		return http.StatusUnprocessableEntity
	case deploy.ErrorConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) writeDeployError(w http.ResponseWriter, err error) {
	code := ""
	var de *deploy.Error
	if errors.As(err, &de) {
		code = string(de.Code)
	}
	h.writeError(w, deployStatus(err), code, deploy.UserMessage(err))
}

type deployResponse struct {
	ipfs.UploadResult
	// DomainLink is the content id to carry into the domain dialog.
	DomainLink string `json:"domain_link,omitempty"`
}

func (h *Handler) Deploy(w http.ResponseWriter, r *http.Request) {
	convID, err := conversationID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid conversation ID")
		return
	}

	messages, err := h.db.GetMessages(convID)
	if err != nil {
		h.logger.Error("Failed to load messages for deploy", zap.Int64("conversation_id", convID), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}

	res, err := h.deployer.Deploy(r.Context(), convID, messages)
	if err != nil {
		h.writeDeployError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, deployResponse{UploadResult: res, DomainLink: res.ContentID})
}

func (h *Handler) GetDeployments(w http.ResponseWriter, r *http.Request) {
	var convID int64
	if v := r.URL.Query().Get("conversation_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "", "Invalid conversation ID")
			return
		}
		convID = id
	}

	deployments, err := h.db.GetDeployments(convID, h.historyLimit)
	if err != nil {
		h.logger.Error("Failed to list deployments", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, deployments)
}

type shareRequest struct {
	Text string `json:"text"`
}

func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid request body")
		return
	}

	res, err := h.sharer.Share(r.Context(), req.Text)
	if err != nil {
		h.writeDeployError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

type domainRequest struct {
	Domain string `json:"domain"`
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateDomain backs the blur and edit checks of the domain field.
func (h *Handler) ValidateDomain(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid request body")
		return
	}

	resp := validateResponse{Valid: true}
	var verr *domainlink.ValidationError
	if err := domainlink.Validate(req.Domain); errors.As(err, &verr) {
		resp = validateResponse{Error: verr.Message}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// LinkDomain runs the domain dialog against the latest deployment. The
// content id always comes from the server, never from the request.
func (h *Handler) LinkDomain(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid request body")
		return
	}

	latest, ok := h.deployer.Latest()
	if !ok {
		h.writeError(w, http.StatusConflict, "", "Deploy a site before linking a domain.")
		return
	}

	dialog := domainlink.NewDialog(h.registrar)
	if err := dialog.Open(latest.ContentID); err != nil {
		h.writeError(w, http.StatusConflict, "", "Deploy a site before linking a domain.")
		return
	}
	dialog.Change(req.Domain)

	advanced, err := dialog.Submit(r.Context())
	if err != nil {
		h.logger.Warn("Domain registrar failed", zap.String("domain", req.Domain), zap.Error(err))
	}
	status := http.StatusOK
	if !advanced {
		status = http.StatusUnprocessableEntity
	}

	st := dialog.State()
	phase := ui.DialogPhaseFor(st.Open)
	h.writeJSON(w, status, linkResponse{
		State:    st,
		Dialog:   ui.DialogVariant(phase),
		Backdrop: ui.BackdropVariant(phase),
	})
}

// linkResponse is the dialog state plus the motion for its current phase.
type linkResponse struct {
	domainlink.State
	Dialog   ui.Motion `json:"dialog"`
	Backdrop ui.Motion `json:"backdrop"`
}

package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/commitsense/commitsense/application/service"
	"github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/domain/project"
	"github.com/commitsense/commitsense/infrastructure/api/middleware"
)

const defaultCommitPageSize = 50

// ProjectsRouter handles project API endpoints.
type ProjectsRouter struct {
	projects project.Store
	commits  commit.Store
	poller   *service.Poller
	indexer  *service.Indexer
	logger   *slog.Logger
}

// NewProjectsRouter creates a new ProjectsRouter.
func NewProjectsRouter(
	projects project.Store,
	commits commit.Store,
	poller *service.Poller,
	indexer *service.Indexer,
	logger *slog.Logger,
) *ProjectsRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectsRouter{
		projects: projects,
		commits:  commits,
		poller:   poller,
		indexer:  indexer,
		logger:   logger,
	}
}

// Routes returns the chi router for project endpoints.
func (pr *ProjectsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", pr.List)
	router.Post("/", pr.Register)
	router.Get("/{id}", pr.Get)
	router.Post("/{id}/poll", pr.Poll)
	router.Post("/{id}/index", pr.Index)
	router.Get("/{id}/commits", pr.ListCommits)

	return router
}

// Register handles POST /api/v1/projects.
func (pr *ProjectsRouter) Register(w http.ResponseWriter, req *http.Request) {
	var body ProjectRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("decode request: %w: %v", middleware.ErrInvalidArgument, err), pr.logger)
		return
	}

	p, err := project.New(body.Name, body.RemoteURL)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}
	if body.AuthToken != "" {
		p = p.WithAuthToken(body.AuthToken)
	}
	if body.DefaultBranch != "" {
		p = p.WithDefaultBranch(body.DefaultBranch)
	}

	saved, err := pr.projects.Save(req.Context(), p)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, projectToDTO(saved))
}

// List handles GET /api/v1/projects.
func (pr *ProjectsRouter) List(w http.ResponseWriter, req *http.Request) {
	projects, err := pr.projects.FindAll(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, ProjectListResponse{Data: projectsToDTO(projects)})
}

// Get handles GET /api/v1/projects/{id}.
func (pr *ProjectsRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := projectID(req)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	p, err := pr.projects.FindByID(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, projectToDTO(p))
}

// Poll handles POST /api/v1/projects/{id}/poll. The poll runs
// synchronously and the structured result is the response body.
func (pr *ProjectsRouter) Poll(w http.ResponseWriter, req *http.Request) {
	id, err := projectID(req)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	result, err := pr.poller.PollCommits(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// Index handles POST /api/v1/projects/{id}/index. The indexing pass runs
// synchronously and the structured result is the response body.
func (pr *ProjectsRouter) Index(w http.ResponseWriter, req *http.Request) {
	id, err := projectID(req)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	result, err := pr.indexer.IndexRepository(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// ListCommits handles GET /api/v1/projects/{id}/commits. Commits are
// returned newest first; ?limit= caps the page size.
func (pr *ProjectsRouter) ListCommits(w http.ResponseWriter, req *http.Request) {
	id, err := projectID(req)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	if _, err := pr.projects.FindByID(req.Context(), id); err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	limit := defaultCommitPageSize
	if raw := req.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	commits, err := pr.commits.ForProject(req.Context(), id, limit)
	if err != nil {
		middleware.WriteError(w, req, err, pr.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, CommitListResponse{Data: commitsToDTO(commits)})
}

func projectID(req *http.Request) (int64, error) {
	raw := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid project id %q: %w", raw, middleware.ErrInvalidArgument)
	}
	return id, nil
}

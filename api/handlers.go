package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tracker-api/app"
	"tracker-api/domain"
	"tracker-api/realtime"
)

const requestBodyMaxSize = 1 << 20

// TokenIssuer signs tokens for the login endpoint.
type TokenIssuer interface {
	SignToken(domain.User) (string, error)
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc Service, auth Authenticator, issuer TokenIssuer, hub *realtime.Hub, logger *log.Logger) {
	e.POST("/api/organizations", postOrganization(svc))
	e.POST("/api/auth/signup", postSignup(svc))
	e.POST("/api/auth/login", postLogin(svc, issuer))

	e.GET("/api/users", getMembers(svc, auth))

	e.POST("/api/projects", postProject(svc, auth))
	e.GET("/api/projects", getProjects(svc, auth))
	e.GET("/api/projects/:id", getProject(svc, auth))
	e.PUT("/api/projects/:id", putProject(svc, auth))
	e.DELETE("/api/projects/:id", deleteProject(svc, auth))
	e.GET("/api/projects/:id/board", getProjectBoard(svc, auth))

	e.POST("/api/tasks", postTask(svc, auth))
	e.GET("/api/tasks", getTasks(svc, auth, false))
	e.GET("/api/tasks/my", getTasks(svc, auth, true))
	e.GET("/api/tasks/:id", getTask(svc, auth))
	e.PATCH("/api/tasks/:id", patchTask(svc, auth))
	e.DELETE("/api/tasks/:id", deleteTask(svc, auth))

	e.GET("/api/tasks/:id/comments", getComments(svc, auth))
	e.POST("/api/tasks/:id/comments", postComment(svc, auth))
	e.DELETE("/api/comments/:id", deleteComment(svc, auth))

	e.GET("/api/notifications", getNotifications(svc, auth))
	e.PATCH("/api/notifications/:id/read", patchNotificationRead(svc, auth))

	e.GET("/api/stream", streamEvents(auth, hub, logger))

	e.GET("/healthz", healthz())
}

type errorResponse struct {
	Error string `json:"error"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func caller(c echo.Context, auth Authenticator) (domain.Caller, error) {
	return auth.CallerFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// rejectionStatus maps core errors to HTTP responses. Anything unmapped is an
// internal error whose details stay out of the response body.
func rejectionStatus(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "resource belongs to another organization"})
	case errors.Is(err, domain.ErrInvalidAssignee):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "assignees must be distinct members of your organization"})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "you do not have permission to perform this action"})
	case errors.Is(err, domain.ErrEmailTaken):
		return c.JSON(http.StatusConflict, errorResponse{Error: "email already registered"})
	case errors.Is(err, app.ErrBadCredentials):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid email or password"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func postOrganization(svc Service) echo.HandlerFunc {
	type request struct {
		Name string `json:"name"`
	}
	return func(c echo.Context) error {
		var req request
		if err := decodeBody(c, &req); err != nil || req.Name == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		org, err := svc.CreateOrganization(c.Request().Context(), req.Name)
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusCreated, org)
	}
}

func postSignup(svc Service) echo.HandlerFunc {
	type request struct {
		Name           string `json:"name"`
		Email          string `json:"email"`
		Password       string `json:"password"`
		OrganizationID string `json:"organizationId"`
	}
	return func(c echo.Context) error {
		var req request
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.Name == "" || req.Email == "" || req.Password == "" || req.OrganizationID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "name, email, password and organizationId are required"})
		}
		user, err := svc.Signup(c.Request().Context(), app.NewUser{
			Name:           req.Name,
			Email:          req.Email,
			Password:       req.Password,
			OrganizationID: req.OrganizationID,
		})
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusCreated, user)
	}
}

func postLogin(svc Service, issuer TokenIssuer) echo.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	type response struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	return func(c echo.Context) error {
		var req request
		if err := decodeBody(c, &req); err != nil || req.Email == "" || req.Password == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		user, err := svc.Login(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return rejectionStatus(c, err)
		}
		token, err := issuer.SignToken(user)
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusOK, response{Token: token, User: user})
	}
}

func getMembers(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		users, err := svc.Members(c.Request().Context(), caller, c.QueryParam("search"))
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusOK, users)
	}
}

func postProject(svc Service, auth Authenticator) echo.HandlerFunc {
	type request struct {
		Name        string     `json:"name"`
		Description string     `json:"description"`
		StartDate   *time.Time `json:"startDate"`
		EndDate     *time.Time `json:"endDate"`
	}
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req request
		if err := decodeBody(c, &req); err != nil || req.Name == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		in := app.NewProject{Name: req.Name, Description: req.Description}
		if req.StartDate != nil {
			in.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			in.EndDate = *req.EndDate
		}
		project, err := svc.CreateProject(c.Request().Context(), caller, in)
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusCreated, project)
	}
}

func getProjects(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		projects, err := svc.Projects(c.Request().Context(), caller)
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusOK, projects)
	}
}

func getProject(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		project, err := svc.ProjectByID(c.Request().Context(), caller, c.Param("id"))
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusOK, project)
	}
}

func putProject(svc Service, auth Authenticator) echo.HandlerFunc {
	type request struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		StartDate   *time.Time `json:"startDate"`
		EndDate     *time.Time `json:"endDate"`
	}
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req request
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		project, err := svc.UpdateProject(c.Request().Context(), caller, c.Param("id"), app.ProjectUpdate{
			Name:        req.Name,
			Description: req.Description,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
		})
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusOK, project)
	}
}

func deleteProject(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		if err := svc.DeleteProject(c.Request().Context(), caller, c.Param("id")); err != nil {
			return rejectionStatus(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getProjectBoard(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		board, err := svc.ProjectBoard(c.Request().Context(), caller, c.Param("id"))
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func postTask(svc Service, auth Authenticator) echo.HandlerFunc {
	type request struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		ProjectID   string     `json:"projectId"`
		AssignedTo  []string   `json:"assignedTo"`
		Status      string     `json:"status"`
		Priority    string     `json:"priority"`
		DueDate     *time.Time `json:"dueDate"`
	}
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req request
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.Title == "" || req.ProjectID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "title and projectId are required"})
		}
		if req.Status != "" && !domain.Status(req.Status).Valid() {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid status"})
		}
		if req.Priority != "" && !domain.Priority(req.Priority).Valid() {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid priority"})
		}
		in := app.NewTask{
			Title:       req.Title,
			Description: req.Description,
			ProjectID:   req.ProjectID,
			AssignedTo:  req.AssignedTo,
			Status:      domain.Status(req.Status),
			Priority:    domain.Priority(req.Priority),
		}
		if req.DueDate != nil {
			in.DueDate = *req.DueDate
		}
		task, err := svc.CreateTask(c.Request().Context(), caller, in)
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func getTasks(svc Service, auth Authenticator, mine bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}

		filter := app.TaskFilter{
			Search:     c.QueryParam("search"),
			AssignedTo: c.QueryParam("assignedTo"),
		}
		if raw := c.QueryParam("status"); raw != "" {
			if !domain.Status(raw).Valid() {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid status"})
			}
			filter.Status = domain.Status(raw)
		}
		if raw := c.QueryParam("priority"); raw != "" {
			if !domain.Priority(raw).Valid() {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid priority"})
			}
			filter.Priority = domain.Priority(raw)
		}
		var badPage bool
		filter.Page, badPage = parsePositiveInt(c.QueryParam("page"))
		if badPage {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid page"})
		}
		var badLimit bool
		filter.Limit, badLimit = parsePositiveInt(c.QueryParam("limit"))
		if badLimit {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid limit"})
		}

		list := svc.Tasks
		if mine {
			list = svc.MyTasks
		}
		tasks, total, err := list(c.Request().Context(), caller, filter)
		if err != nil {
			return rejectionStatus(c, err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		if filter.Page < 1 {
			filter.Page = 1
		}
		if filter.Limit < 1 {
			filter.Limit = 10
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks, Total: total, Page: filter.Page, Limit: filter.Limit})
	}
}

func parsePositiveInt(raw string) (value int, bad bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, true
	}
	return n, false
}

func getTask(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		task, err := svc.TaskByID(c.Request().Context(), caller, c.Param("id"))
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func patchTask(svc Service, auth Authenticator) echo.HandlerFunc {
	type request struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		AssignedTo  []string   `json:"assignedTo"`
		Status      *string    `json:"status"`
		Priority    *string    `json:"priority"`
		DueDate     *time.Time `json:"dueDate"`
	}
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req request
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		upd := domain.TaskUpdate{
			Title:       req.Title,
			Description: req.Description,
			AssignedTo:  req.AssignedTo,
			DueDate:     req.DueDate,
		}
		if req.Status != nil {
			status := domain.Status(*req.Status)
			if !status.Valid() {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid status"})
			}
			upd.Status = &status
		}
		if req.Priority != nil {
			priority := domain.Priority(*req.Priority)
			if !priority.Valid() {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid priority"})
			}
			upd.Priority = &priority
		}

		task, err := svc.MutateTask(c.Request().Context(), caller, c.Param("id"), upd)
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		if err := svc.DeleteTask(c.Request().Context(), caller, c.Param("id")); err != nil {
			return rejectionStatus(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getComments(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		comments, err := svc.Comments(c.Request().Context(), caller, c.Param("id"))
		if err != nil {
			return rejectionStatus(c, err)
		}
		if comments == nil {
			comments = []domain.Comment{}
		}
		return c.JSON(http.StatusOK, comments)
	}
}

func postComment(svc Service, auth Authenticator) echo.HandlerFunc {
	type request struct {
		Comment string `json:"comment"`
	}
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req request
		if err := decodeBody(c, &req); err != nil || req.Comment == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		comment, err := svc.AddComment(c.Request().Context(), caller, c.Param("id"), req.Comment)
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusCreated, comment)
	}
}

func deleteComment(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		if err := svc.DeleteComment(c.Request().Context(), caller, c.Param("id")); err != nil {
			return rejectionStatus(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getNotifications(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		notifications, err := svc.Notifications(c.Request().Context(), caller)
		if err != nil {
			return rejectionStatus(c, err)
		}
		if notifications == nil {
			notifications = []domain.Notification{}
		}
		return c.JSON(http.StatusOK, notifications)
	}
}

func patchNotificationRead(svc Service, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := caller(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		n, err := svc.MarkNotificationRead(c.Request().Context(), caller, c.Param("id"))
		if err != nil {
			return rejectionStatus(c, err)
		}
		return c.JSON(http.StatusOK, n)
	}
}

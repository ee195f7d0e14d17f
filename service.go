package goresource

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// Service mounts resources onto an echo router. One service instance is
// built per assembly, shares a registry with its resources, and owns the
// request-facing concerns: payload binding, validation, error mapping and
// logging.
type Service struct {
	registry *Registry
	logger   *slog.Logger
	validate *validator.Validate
}

type ServiceOption func(*Service)

// WithLogger overrides the service logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func NewService(registry *Registry, opts ...ServiceOption) *Service {
	s := &Service{
		registry: registry,
		logger:   slog.Default(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Registry returns the registry shared by the service's resources.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Validate - implements echo.Validator.
func (s *Service) Validate(i any) error {
	if err := s.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}

// RegisterResource mounts the entity methods of a resource onto a router
// group:
//
//	POST   /{plural}        create (201)
//	GET    /{plural}        list
//	GET    /{plural}/:{id}  get
//	PATCH  /{plural}/:{id}  update
//	DELETE /{plural}/:{id}  delete (204)
//
// The id parameter is named "{model}_{id_column}".
func RegisterResource[T any](s *Service, g *echo.Group, resource *Resource[T]) {
	base := "/" + resource.PluralName()
	entity := fmt.Sprintf("%s/:%s", base, resource.RequestIDParam())

	g.POST(base, createHandler(s, resource))
	g.GET(base, listHandler(s, resource))
	g.GET(entity, getHandler(s, resource))
	g.PATCH(entity, updateHandler(s, resource))
	g.DELETE(entity, deleteHandler(s, resource))

	s.logger.Info("registered resource routes",
		"resource", resource.Name(),
		"path", base,
	)
}

func createHandler[T any](s *Service, resource *Resource[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		properties := make(map[string]any)
		if err := c.Bind(&properties); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
		}

		ctx := c.Request().Context()

		entity, err := resource.Create(ctx, properties)
		if err != nil {
			return s.httpError(c, err)
		}

		message, err := resource.Format(ctx, entity)
		if err != nil {
			return s.httpError(c, err)
		}

		return c.JSON(http.StatusCreated, message)
	}
}

func listHandler[T any](s *Service, resource *Resource[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		request, err := bindListRequest(c, resource.columnMapping())
		if err != nil {
			return err
		}

		if err = s.Validate(request); err != nil {
			return err
		}

		response, err := resource.List(c.Request().Context(), *request)
		if err != nil {
			return s.httpError(c, err)
		}

		return c.JSON(http.StatusOK, response)
	}
}

func getHandler[T any](s *Service, resource *Resource[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		entity, err := resource.Get(ctx, c.Param(resource.RequestIDParam()))
		if err != nil {
			return s.httpError(c, err)
		}

		message, err := resource.Format(ctx, entity)
		if err != nil {
			return s.httpError(c, err)
		}

		return c.JSON(http.StatusOK, message)
	}
}

func updateHandler[T any](s *Service, resource *Resource[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		var request UpdateEntityRequest
		if err := c.Bind(&request); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
		}
		if err := s.Validate(&request); err != nil {
			return err
		}

		ctx := c.Request().Context()

		entity, err := resource.Get(ctx, c.Param(resource.RequestIDParam()))
		if err != nil {
			return s.httpError(c, err)
		}

		updated, err := resource.Update(ctx, entity, request.Changes, request.UpdateMask)
		if err != nil {
			return s.httpError(c, err)
		}

		message, err := resource.Format(ctx, updated)
		if err != nil {
			return s.httpError(c, err)
		}

		return c.JSON(http.StatusOK, message)
	}
}

func deleteHandler[T any](s *Service, resource *Resource[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		entity, err := resource.Get(ctx, c.Param(resource.RequestIDParam()))
		if err != nil {
			return s.httpError(c, err)
		}

		if err = resource.Delete(ctx, entity); err != nil {
			return s.httpError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}

// bindListRequest reads the list parameters from the query string:
// page_token and page_size, repeated "sort" entries in "column asc|desc"
// form, an "order" JSON list in wire form and a "filters" JSON object.
func bindListRequest(c echo.Context, columnMapping ColumnMapping) (*ListEntitiesRequest, error) {
	request := new(ListEntitiesRequest)
	if err := c.Bind(request); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed list parameters")
	}

	if sort := c.QueryParams()["sort"]; len(sort) > 0 {
		orderings, err := ParseSort(sort, columnMapping)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		request.Order = lo.Map(orderings, func(o OrderBy, _ int) map[string]any {
			return map[string]any{
				"field":     o.Column,
				"ascending": o.Direction == DirectionASC,
			}
		})
	}

	if raw := c.QueryParam("order"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &request.Order); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed order list")
		}
	}

	if raw := c.QueryParam("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &request.Filters); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed filters object")
		}
	}

	return request, nil
}

// httpError maps library error kinds onto HTTP status codes. Unrecognized
// failures are logged and surfaced as opaque 500s.
func (s *Service) httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidFilter), errors.Is(err, ErrInvalidOrdering):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		s.logger.ErrorContext(c.Request().Context(), "entity operation failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)

		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

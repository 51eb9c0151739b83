package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/folio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/pagination"
	"github.com/angelmondragon/folio-backend/pkg/types"
)

var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"views":      "views",
	"likes":      "likes",
	"title":      "title",
}

type sortSpec struct {
	column string
	desc   bool
}

func (s sortSpec) clause() string {
	column := s.column
	if column == "" {
		column = "created_at"
	}
	if s.desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// ListParams configures media listing filters and pagination.
type ListParams struct {
	Kind     string
	Category string
	Tag      string
	Search   string
	Featured *bool
	Active   *bool
	Hero     *bool
	Sort     string
	Order    string
	Page     int
	Limit    int
}

func (s *service) List(ctx context.Context, params ListParams) (*types.PagedResult[MediaDTO], error) {
	query, err := buildListQuery(params)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	items := make([]MediaDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &types.PagedResult[MediaDTO]{Items: items, Meta: pagination.Meta(query.page, total)}, nil
}

// ListPublic lists active media only. Active and hero filters are ignored.
func (s *service) ListPublic(ctx context.Context, params ListParams) (*types.PagedResult[PublicMediaDTO], error) {
	active := true
	params.Active = &active
	params.Hero = nil

	query, err := buildListQuery(params)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	items := make([]PublicMediaDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *PublicFromModel(&rows[i]))
	}
	return &types.PagedResult[PublicMediaDTO]{Items: items, Meta: pagination.Meta(query.page, total)}, nil
}

func buildListQuery(params ListParams) (listQuery, error) {
	query := listQuery{
		featured: params.Featured,
		active:   params.Active,
		hero:     params.Hero,
		search:   strings.TrimSpace(params.Search),
		page:     pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize(),
	}

	if raw := strings.TrimSpace(params.Kind); raw != "" {
		kind, err := enums.ParseMediaKind(raw)
		if err != nil {
			return listQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind filter")
		}
		query.kind = &kind
	}
	if raw := strings.TrimSpace(params.Category); raw != "" {
		category, err := enums.ParseMediaCategory(raw)
		if err != nil {
			return listQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category filter")
		}
		query.category = &category
	}
	if raw := strings.TrimSpace(params.Tag); raw != "" {
		tag, err := normalizeTag(raw)
		if err != nil {
			return listQuery{}, err
		}
		query.tag = tag
	}

	spec, err := parseSort(params.Sort, params.Order)
	if err != nil {
		return listQuery{}, err
	}
	query.sort = spec
	return query, nil
}

func parseSort(field, order string) (sortSpec, error) {
	spec := sortSpec{column: "created_at", desc: true}
	if field = strings.ToLower(strings.TrimSpace(field)); field != "" {
		column, ok := sortColumns[field]
		if !ok {
			return sortSpec{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported sort field %q", field))
		}
		spec.column = column
		// titles read naturally A-Z; everything else newest/most first
		spec.desc = column != "title"
	}
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "":
	case "asc":
		spec.desc = false
	case "desc":
		spec.desc = true
	default:
		return sortSpec{}, pkgerrors.New(pkgerrors.CodeValidation, "order must be asc or desc")
	}
	return spec, nil
}

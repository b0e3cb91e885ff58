package cel

import (
	"path/filepath"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/lumenshop/storefront/internal/domain/catalog"
)

// NewProductEnvironment creates a CEL environment for product expressions.
//
// Variables: id, name, slug, description, price, compare_at_price, on_sale,
// category, tags, stock, in_stock, featured, is_new, rating, review_count,
// created_at.
// Functions: glob(pattern, s), has_tag(tags, tag).
func NewProductEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		ext.Sets(),

		cel.Variable("id", cel.IntType),
		cel.Variable("name", cel.StringType),
		cel.Variable("slug", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("price", cel.DoubleType),
		cel.Variable("compare_at_price", cel.DoubleType),
		cel.Variable("on_sale", cel.BoolType),
		cel.Variable("category", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("stock", cel.IntType),
		cel.Variable("in_stock", cel.BoolType),
		cel.Variable("featured", cel.BoolType),
		cel.Variable("is_new", cel.BoolType),
		cel.Variable("rating", cel.DoubleType),
		cel.Variable("review_count", cel.IntType),
		cel.Variable("created_at", cel.TimestampType),

		// glob: shell-style pattern match, e.g. glob("smart-*", slug)
		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pattern, s ref.Val) ref.Val {
					p, ok1 := pattern.Value().(string)
					v, ok2 := s.Value().(string)
					if !ok1 || !ok2 {
						return types.Bool(false)
					}
					matched, _ := filepath.Match(p, v)
					return types.Bool(matched)
				}),
			),
		),

		// has_tag: case-insensitive tag membership, e.g. has_tag(tags, "Audio")
		cel.Function("has_tag",
			cel.Overload("has_tag_list_string",
				[]*cel.Type{cel.ListType(cel.StringType), cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(list, tag ref.Val) ref.Val {
					want, ok := tag.Value().(string)
					if !ok {
						return types.Bool(false)
					}
					tags, err := list.ConvertToNative(stringSliceType)
					if err != nil {
						return types.Bool(false)
					}
					for _, t := range tags.([]string) {
						if strings.EqualFold(t, want) {
							return types.Bool(true)
						}
					}
					return types.Bool(false)
				}),
			),
		),
	)
}

// BuildProductActivation maps a product onto the environment's variables.
func BuildProductActivation(p catalog.Product) map[string]any {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	var compareAt float64
	if p.CompareAtPrice != nil {
		compareAt = *p.CompareAtPrice
	}

	var rating float64
	var reviews int64
	if p.Ratings != nil {
		rating = p.Ratings.Average
		reviews = int64(p.Ratings.Count)
	}

	return map[string]any{
		"id":               p.ID,
		"name":             p.Name,
		"slug":             p.Slug,
		"description":      p.Description,
		"price":            p.Price,
		"compare_at_price": compareAt,
		"on_sale":          compareAt > p.Price,
		"category":         p.Category,
		"tags":             tags,
		"stock":            int64(p.Stock),
		"in_stock":         p.Stock > 0,
		"featured":         p.IsFeatured,
		"is_new":           p.IsNew,
		"rating":           rating,
		"review_count":     reviews,
		"created_at":       p.CreatedAt,
	}
}

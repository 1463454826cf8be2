package restaurants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lib/pq"

	"chopfinder/models"
)

const selectFields = "r.id, r.name, r.image, r.cuisine, r.delivery_min, r.delivery_max, r.rating, r.price_range, r.dietary_options, r.is_open, r.latitude, r.longitude"

// cursorRow holds the sort keys of the row a page starts after.
type cursorRow struct {
	Seq         int64
	Rating      float64
	DeliveryMin int
	PriceRange  int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// sortColumn returns the ordering column and the keyset comparison for a sort option.
// Distance has no column; those pages are ordered by catalog position and re-sorted
// by the caller.
func sortColumn(by models.SortOption) (col, dir, cmp string) {
	switch by {
	case models.SortDeliveryTime:
		return "r.delivery_min", "ASC", ">"
	case models.SortPrice:
		return "r.price_range", "ASC", ">"
	case models.SortDistance:
		return "", "", ""
	default:
		return "r.rating", "DESC", "<"
	}
}

// buildPageQuery generates the SQL and arguments for one page. Every predicate runs
// in the database; ties are broken by catalog position (seq).
func buildPageQuery(q Query, after *cursorRow) (string, []interface{}) {
	var args []interface{}
	var conditions []string
	idx := 1
	f := q.Filter

	if term := normalizeTerm(q.Search); term != "" {
		conditions = append(conditions, fmt.Sprintf("(r.name ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(r.cuisine) AS c WHERE c ILIKE $%d))", idx, idx))
		args = append(args, "%"+likeEscaper.Replace(term)+"%")
		idx++
	}
	if len(f.Cuisine) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.cuisine && $%d", idx))
		args = append(args, pq.Array(f.Cuisine))
		idx++
	}
	if len(f.PriceRange) > 0 {
		tiers := make([]int64, 0, len(f.PriceRange))
		for _, t := range f.PriceRange {
			tiers = append(tiers, int64(t))
		}
		conditions = append(conditions, fmt.Sprintf("r.price_range = ANY($%d)", idx))
		args = append(args, pq.Array(tiers))
		idx++
	}
	if f.HasMinRating() {
		conditions = append(conditions, fmt.Sprintf("r.rating >= $%d", idx))
		args = append(args, *f.MinRating)
		idx++
	}
	if f.HasMaxDeliveryTime() {
		conditions = append(conditions, fmt.Sprintf("r.delivery_max <= $%d", idx))
		args = append(args, *f.MaxDeliveryTime)
		idx++
	}
	if len(f.DietaryOptions) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.dietary_options && $%d", idx))
		args = append(args, pq.Array(f.DietaryOptions))
		idx++
	}
	if f.IsOpen != nil {
		conditions = append(conditions, fmt.Sprintf("r.is_open = $%d", idx))
		args = append(args, *f.IsOpen)
		idx++
	}

	col, dir, cmp := sortColumn(q.sortBy())
	if after != nil {
		if col == "" {
			conditions = append(conditions, fmt.Sprintf("r.seq > $%d", idx))
			args = append(args, after.Seq)
			idx++
		} else {
			var key interface{}
			switch col {
			case "r.delivery_min":
				key = after.DeliveryMin
			case "r.price_range":
				key = after.PriceRange
			default:
				key = after.Rating
			}
			conditions = append(conditions, fmt.Sprintf("(%s %s $%d OR (%s = $%d AND r.seq > $%d))", col, cmp, idx, col, idx, idx+1))
			args = append(args, key, after.Seq)
			idx += 2
		}
	}

	whereStr := ""
	if len(conditions) > 0 {
		whereStr = "WHERE " + strings.Join(conditions, " AND ")
	}
	orderBy := "ORDER BY r.seq ASC"
	if col != "" {
		orderBy = fmt.Sprintf("ORDER BY %s %s, r.seq ASC", col, dir)
	}

	query := fmt.Sprintf("SELECT %s FROM restaurants r %s %s LIMIT $%d", selectFields, whereStr, orderBy, idx)
	args = append(args, q.pageSize())
	return query, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row scanner) (models.Restaurant, error) {
	var r models.Restaurant
	var price int
	err := row.Scan(&r.ID, &r.Name, &r.Image, pq.Array(&r.Cuisine), &r.DeliveryTime.Min, &r.DeliveryTime.Max,
		&r.Rating, &price, pq.Array(&r.DietaryOptions), &r.IsOpen, &r.Location.Latitude, &r.Location.Longitude)
	r.PriceRange = models.PriceTier(price)
	return r, err
}

// PostgresSource queries the restaurants table created by database.Migrate.
type PostgresSource struct {
	db     *sql.DB
	logger *log.Logger
}

func NewPostgresSource(db *sql.DB, logger *log.Logger) *PostgresSource {
	return &PostgresSource{db: db, logger: logger.WithPrefix("postgres")}
}

func (s *PostgresSource) cursorRow(ctx context.Context, id string) (*cursorRow, error) {
	var c cursorRow
	err := s.db.QueryRowContext(ctx,
		"SELECT seq, rating, delivery_min, price_range FROM restaurants WHERE id = $1", id,
	).Scan(&c.Seq, &c.Rating, &c.DeliveryMin, &c.PriceRange)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("cursor row not found", "cursor", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cursor %s: %w", id, err)
	}
	return &c, nil
}

func (s *PostgresSource) query(ctx context.Context, query string, args ...interface{}) ([]models.Restaurant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.Restaurant{}
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PostgresSource) FetchPage(ctx context.Context, q Query) (page models.Page, err error) {
	defer func(start time.Time) { observe("postgres", "fetch", start, err) }(time.Now())

	var after *cursorRow
	if q.Cursor != "" {
		if after, err = s.cursorRow(ctx, q.Cursor); err != nil {
			return models.Page{}, fetchError(err)
		}
	}

	query, args := buildPageQuery(q, after)
	list, err := s.query(ctx, query, args...)
	if err != nil {
		s.logger.Error("page query failed", "err", err)
		return models.Page{}, fetchError(err)
	}

	lastID := ""
	if len(list) > 0 {
		lastID = list[len(list)-1].ID
	}
	return newPage(list, lastID, q.pageSize(), len(list)), nil
}

func (s *PostgresSource) SearchByName(ctx context.Context, term string) (list []models.Restaurant, err error) {
	defer func(start time.Time) { observe("postgres", "search", start, err) }(time.Now())

	term = normalizeTerm(term)
	if term == "" {
		return []models.Restaurant{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM restaurants r
		WHERE r.name ILIKE $1 OR EXISTS (SELECT 1 FROM unnest(r.cuisine) AS c WHERE c ILIKE $1)
		ORDER BY r.seq ASC LIMIT $2`, selectFields)
	list, err = s.query(ctx, query, "%"+likeEscaper.Replace(term)+"%", SearchLimit)
	if err != nil {
		s.logger.Error("search query failed", "err", err)
		return nil, searchError(err)
	}
	return list, nil
}

// Upsert inserts restaurants in batches, updating rows whose id already exists. An
// updated row keeps its catalog position.
func (s *PostgresSource) Upsert(ctx context.Context, list []models.Restaurant) error {
	const batchSize = 50
	for i := 0; i < len(list); i += batchSize {
		end := min(i+batchSize, len(list))
		if err := s.upsertBatch(ctx, list[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresSource) upsertBatch(ctx context.Context, batch []models.Restaurant) error {
	const cols = 12
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for n, r := range batch {
		ph := make([]string, cols)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", n*cols+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			r.ID, r.Name, r.Image, pq.Array(orEmpty(r.Cuisine)), r.DeliveryTime.Min, r.DeliveryTime.Max,
			r.Rating, int(r.PriceRange), pq.Array(orEmpty(r.DietaryOptions)), r.IsOpen,
			r.Location.Latitude, r.Location.Longitude)
	}

	query := fmt.Sprintf(`
		INSERT INTO restaurants (id, name, image, cuisine, delivery_min, delivery_max, rating, price_range, dietary_options, is_open, latitude, longitude)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, image = EXCLUDED.image, cuisine = EXCLUDED.cuisine,
			delivery_min = EXCLUDED.delivery_min, delivery_max = EXCLUDED.delivery_max,
			rating = EXCLUDED.rating, price_range = EXCLUDED.price_range,
			dietary_options = EXCLUDED.dietary_options, is_open = EXCLUDED.is_open,
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
	`, strings.Join(valueStrings, ","))

	if _, err := s.db.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: upsert batch: %w", err)
	}
	return nil
}

// orEmpty keeps nil slices from being stored as NULL arrays.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

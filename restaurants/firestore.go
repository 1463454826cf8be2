package restaurants

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/charmbracelet/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chopfinder/models"
)

// DefaultCollection is the Firestore collection holding the catalog.
const DefaultCollection = "restaurants"

// maxDisjunction is Firestore's limit on values in an array-contains-any clause.
const maxDisjunction = 10

// searchScanLimit is how many documents SearchByName reads before filtering.
const searchScanLimit = 50

type wherePlan struct {
	Path  string
	Op    string
	Value any
}

// firestorePlan is the server-side part of a page query. Search text, dietary options
// and the delivery bound are applied to the fetched documents afterwards.
type firestorePlan struct {
	Where     []wherePlan
	OrderBy   string
	Direction firestore.Direction
	Limit     int
}

func planFirestoreQuery(q Query) firestorePlan {
	f := q.Filter
	p := firestorePlan{Limit: q.pageSize()}

	if len(f.Cuisine) > 0 {
		p.Where = append(p.Where, wherePlan{"cuisine", "array-contains-any", f.Cuisine[:min(len(f.Cuisine), maxDisjunction)]})
	}
	if len(f.PriceRange) > 0 {
		tiers := make([]int, 0, len(f.PriceRange))
		for _, t := range f.PriceRange {
			tiers = append(tiers, int(t))
		}
		p.Where = append(p.Where, wherePlan{"priceRange", "in", tiers})
	}
	if f.HasMinRating() {
		p.Where = append(p.Where, wherePlan{"rating", ">=", *f.MinRating})
	}
	if f.IsOpen != nil {
		p.Where = append(p.Where, wherePlan{"isOpen", "==", *f.IsOpen})
	}

	switch q.sortBy() {
	case models.SortRating:
		p.OrderBy, p.Direction = "rating", firestore.Desc
	case models.SortDeliveryTime:
		p.OrderBy, p.Direction = "deliveryTime.min", firestore.Asc
	case models.SortPrice:
		p.OrderBy, p.Direction = "priceRange", firestore.Asc
	}
	return p
}

func (p firestorePlan) apply(col *firestore.CollectionRef) firestore.Query {
	query := col.Query
	for _, w := range p.Where {
		query = query.Where(w.Path, w.Op, w.Value)
	}
	if p.OrderBy != "" {
		query = query.OrderBy(p.OrderBy, p.Direction)
	}
	return query.Limit(p.Limit)
}

// FirestoreSource queries a Firestore collection.
type FirestoreSource struct {
	client     *firestore.Client
	collection string
	logger     *log.Logger
}

func NewFirestoreSource(client *firestore.Client, collection string, logger *log.Logger) *FirestoreSource {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreSource{client: client, collection: collection, logger: logger.WithPrefix("firestore")}
}

func (s *FirestoreSource) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// cursorDocument returns nil when the cursor document no longer exists, in which case
// the page starts from the beginning.
func (s *FirestoreSource) cursorDocument(ctx context.Context, id string) (*firestore.DocumentSnapshot, error) {
	snap, err := s.col().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		s.logger.Warn("cursor document not found", "cursor", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cursor %s: %w", id, err)
	}
	return snap, nil
}

func decodeDocs(docs []*firestore.DocumentSnapshot) ([]models.Restaurant, error) {
	out := make([]models.Restaurant, 0, len(docs))
	for _, doc := range docs {
		var r models.Restaurant
		if err := doc.DataTo(&r); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
		}
		r.ID = doc.Ref.ID
		out = append(out, r)
	}
	return out, nil
}

// FetchPage runs the planned query. HasMore and NextCursor follow the number of
// documents read, not the number left after client-side filtering.
func (s *FirestoreSource) FetchPage(ctx context.Context, q Query) (page models.Page, err error) {
	defer func(start time.Time) { observe("firestore", "fetch", start, err) }(time.Now())

	query := planFirestoreQuery(q).apply(s.col())
	if q.Cursor != "" {
		snap, err := s.cursorDocument(ctx, q.Cursor)
		if err != nil {
			return models.Page{}, fetchError(err)
		}
		if snap != nil {
			query = query.StartAfter(snap)
		}
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return models.Page{}, fetchError(err)
	}
	list, err := decodeDocs(docs)
	if err != nil {
		return models.Page{}, fetchError(err)
	}

	return firestorePage(q, list), nil
}

// firestorePage applies the predicates Firestore could not express to the documents
// one query read. The cursor is the last document read, even when the filter drops it.
func firestorePage(q Query, read []models.Restaurant) models.Page {
	clientSide := models.RestaurantFilter{
		DietaryOptions:  q.Filter.DietaryOptions,
		MaxDeliveryTime: q.Filter.MaxDeliveryTime,
	}
	lastID := ""
	if len(read) > 0 {
		lastID = read[len(read)-1].ID
	}
	return newPage(Filter(read, q.Search, clientSide), lastID, q.pageSize(), len(read))
}

func (s *FirestoreSource) SearchByName(ctx context.Context, term string) (list []models.Restaurant, err error) {
	defer func(start time.Time) { observe("firestore", "search", start, err) }(time.Now())

	if normalizeTerm(term) == "" {
		return []models.Restaurant{}, nil
	}
	docs, err := s.col().Limit(searchScanLimit).Documents(ctx).GetAll()
	if err != nil {
		return nil, searchError(err)
	}
	all, err := decodeDocs(docs)
	if err != nil {
		return nil, searchError(err)
	}
	found := Filter(all, term, models.RestaurantFilter{})
	return found[:min(len(found), SearchLimit)], nil
}

// Upsert writes each restaurant to the document named by its id.
func (s *FirestoreSource) Upsert(ctx context.Context, list []models.Restaurant) error {
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(list))
	for _, r := range list {
		job, err := bw.Set(s.col().Doc(r.ID), r)
		if err != nil {
			bw.End()
			return fmt.Errorf("queue %s: %w", r.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("write %s: %w", list[i].ID, err)
		}
	}
	return nil
}

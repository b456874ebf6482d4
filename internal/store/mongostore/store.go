// Package mongostore is the MongoDB RequestStore. Push subscriptions ride on
// change streams, so the deployment must be a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CollectionName is the collection holding part requests.
const CollectionName = "part_requests"

var _ store.RequestStore = (*Store)(nil)

type document struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	models.PartRequest `bson:",inline"`
}

func (d document) record() models.PartRequest {
	r := d.PartRequest
	r.ID = d.ID.Hex()
	return r
}

type Store struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewStore(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{coll: db.Collection(CollectionName), logger: logger}
}

func (s *Store) Insert(ctx context.Context, r models.PartRequest) (string, error) {
	res, err := s.coll.InsertOne(ctx, document{PartRequest: r})
	if err != nil {
		return "", fmt.Errorf("insert part request: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert part request: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (s *Store) Update(ctx context.Context, id string, p store.Patch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	set := patchDoc(p)
	if len(set) == 0 {
		return nil
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update part request %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete part request %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (models.PartRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.PartRequest{}, store.ErrNotFound
	}
	var doc document
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.PartRequest{}, store.ErrNotFound
		}
		return models.PartRequest{}, fmt.Errorf("get part request %s: %w", id, err)
	}
	return doc.record(), nil
}

func (s *Store) Find(ctx context.Context, q store.Query) ([]models.PartRequest, error) {
	filter, err := filterDoc(q)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if sortSpec := sortDoc(q); len(sortSpec) > 0 {
		opts.SetSort(sortSpec)
	}
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query part requests: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode part requests: %w", err)
	}
	out := make([]models.PartRequest, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out, nil
}

// Watch opens a change stream on the whole collection and re-runs q after
// every batch of events. Any change can move a record in or out of the
// result set, so events are not filtered server-side.
func (s *Store) Watch(ctx context.Context, q store.Query, fn store.SnapshotFunc) (store.Subscription, error) {
	if _, err := filterDoc(q); err != nil {
		return nil, err
	}
	watchCtx, cancel := context.WithCancel(ctx)
	cs, err := s.coll.Watch(watchCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open change stream: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		defer cs.Close(context.Background())
		s.deliver(watchCtx, q, fn)
		for cs.Next(watchCtx) {
			// Drain whatever is already buffered so one batch yields one snapshot.
			for cs.TryNext(watchCtx) {
			}
			if cs.Err() != nil {
				break
			}
			s.deliver(watchCtx, q, fn)
		}
		if err := cs.Err(); err != nil && watchCtx.Err() == nil {
			s.logger.Warn("Change stream closed", zap.String("collection", CollectionName), zap.Error(err))
			fn(nil, fmt.Errorf("change stream: %w", err))
		}
	}()

	var once sync.Once
	return store.SubscriptionFunc(func() {
		once.Do(cancel)
		<-exited
	}), nil
}

func (s *Store) deliver(ctx context.Context, q store.Query, fn store.SnapshotFunc) {
	if ctx.Err() != nil {
		return
	}
	records, err := s.Find(ctx, q)
	if ctx.Err() != nil {
		return
	}
	fn(records, err)
}

func mongoField(field string) string {
	if field == store.FieldID {
		return "_id"
	}
	return field
}

func mongoValue(field, value string) (interface{}, error) {
	if field != store.FieldID {
		return value, nil
	}
	oid, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", value, err)
	}
	return oid, nil
}

func filterDoc(q store.Query) (bson.D, error) {
	clauses := bson.A{}
	for _, c := range q.Where {
		v, err := mongoValue(c.Field, c.Value)
		if err != nil {
			return nil, err
		}
		switch c.Op {
		case store.OpEq:
			clauses = append(clauses, bson.D{{Key: mongoField(c.Field), Value: v}})
		case store.OpNe:
			clauses = append(clauses, bson.D{{Key: mongoField(c.Field), Value: bson.D{{Key: "$ne", Value: v}}}})
		default:
			return nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
	}
	switch len(clauses) {
	case 0:
		return bson.D{}, nil
	case 1:
		return clauses[0].(bson.D), nil
	}
	return bson.D{{Key: "$and", Value: clauses}}, nil
}

func sortDoc(q store.Query) bson.D {
	out := bson.D{}
	for _, k := range q.OrderBy {
		dir := 1
		if k.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: mongoField(k.Field), Value: dir})
	}
	return out
}

func patchDoc(p store.Patch) bson.M {
	set := bson.M{}
	if p.OSNumber != nil {
		set[store.FieldOSNumber] = *p.OSNumber
	}
	if p.CostCenter != nil {
		set[store.FieldCostCenter] = *p.CostCenter
	}
	if p.Reservation != nil {
		set[store.FieldReservation] = *p.Reservation
	}
	if p.RegistrationNumber != nil {
		set[store.FieldRegistrationNumber] = *p.RegistrationNumber
	}
	if p.RequesterName != nil {
		set[store.FieldRequesterName] = *p.RequesterName
	}
	if p.Status != nil {
		set[store.FieldStatus] = *p.Status
	}
	if p.Items != nil {
		set[store.FieldItems] = p.Items
	}
	return set
}

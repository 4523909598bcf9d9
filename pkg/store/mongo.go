package store

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	rberr "github.com/matzehuels/rankbars/pkg/errors"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Collection names.
const (
	CollectionNotes       = "notes"
	CollectionAnnualNotes = "annual_notes"
	CollectionCompanies   = "companies"
	CollectionSnapshots   = "snapshots"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "market_cap_portfolio"

// Mongo is a Store backed by MongoDB.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// ConnectMongo connects to uri and verifies the connection with a ping to
// the primary. An unreachable server reports [rberr.ErrCodeUnavailable].
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, rberr.New(rberr.ErrCodeUnavailable, "missing MongoDB URI")
	}
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, rberr.Wrap(rberr.ErrCodeUnavailable, err, "connect mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, rberr.Wrap(rberr.ErrCodeUnavailable, err, "ping mongodb")
	}
	return &Mongo{client: client, db: client.Database(database), now: time.Now}, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) GetNote(ctx context.Context, company string) (Note, error) {
	if err := validateCompany(company); err != nil {
		return Note{}, err
	}
	var n Note
	err := m.db.Collection(CollectionNotes).FindOne(ctx, bson.M{"companyName": company}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Note{Company: company}, nil
	}
	if err != nil {
		return Note{}, rberr.Wrap(rberr.ErrCodeInternal, err, "fetch notes")
	}
	n.Company = company
	return n, nil
}

func (m *Mongo) SetNoteField(ctx context.Context, company, field, content string) error {
	if err := validateCompany(company); err != nil {
		return err
	}
	if err := ValidateNoteField(field); err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"companyName": company,
		field:         content,
		fieldUpdated:  m.now(),
	}}
	return m.upsertNote(ctx, company, update, "save note")
}

func (m *Mongo) ClearNoteField(ctx context.Context, company, field string) error {
	if err := validateCompany(company); err != nil {
		return err
	}
	if err := ValidateNoteField(field); err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		field:        "",
		fieldUpdated: m.now(),
	}}
	return m.upsertNote(ctx, company, update, "delete note")
}

func (m *Mongo) upsertNote(ctx context.Context, company string, update bson.M, action string) error {
	_, err := m.db.Collection(CollectionNotes).UpdateOne(ctx,
		bson.M{"companyName": company}, update, options.Update().SetUpsert(true))
	if err != nil {
		return rberr.Wrap(rberr.ErrCodeInternal, err, "%s", action)
	}
	return nil
}

func (m *Mongo) GetAnnualNote(ctx context.Context, year int) (AnnualNote, error) {
	var n AnnualNote
	err := m.db.Collection(CollectionAnnualNotes).FindOne(ctx, bson.M{"year": strconv.Itoa(year)}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return AnnualNote{}, ErrNotFound
	}
	if err != nil {
		return AnnualNote{}, rberr.Wrap(rberr.ErrCodeInternal, err, "fetch annual notes")
	}
	return n, nil
}

func (m *Mongo) SetAnnualNote(ctx context.Context, year int, upd AnnualNoteUpdate) error {
	if upd.Empty() {
		return rberr.New(rberr.ErrCodeInvalidInput, "body must include theme or trend")
	}
	key := strconv.Itoa(year)
	set := bson.M{"year": key}
	if upd.Theme != nil {
		set["theme"] = *upd.Theme
	}
	if upd.Trend != nil {
		set["trend"] = *upd.Trend
	}
	_, err := m.db.Collection(CollectionAnnualNotes).UpdateOne(ctx,
		bson.M{"year": key}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		return rberr.Wrap(rberr.ErrCodeInternal, err, "save annual note")
	}
	return nil
}

func (m *Mongo) GetCompany(ctx context.Context, company string) (CompanyDoc, error) {
	var doc bson.M
	err := m.db.Collection(CollectionCompanies).FindOne(ctx,
		bson.M{fieldCompanyName: company},
		options.FindOne().SetProjection(bson.M{fieldID: 0}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, rberr.Wrap(rberr.ErrCodeInternal, err, "fetch company")
	}
	return CompanyDoc(doc), nil
}

func (m *Mongo) SetCompanyField(ctx context.Context, company, field string, value any) (CompanyDoc, bool, error) {
	if err := validateCompany(company); err != nil {
		return nil, false, err
	}
	if err := ValidateCompanyField(field); err != nil {
		return nil, false, err
	}
	update := bson.M{
		"$set":         bson.M{field: value, fieldUpdated: m.now()},
		"$setOnInsert": bson.M{fieldCompanyName: company},
	}
	res, err := m.db.Collection(CollectionCompanies).UpdateOne(ctx,
		bson.M{fieldCompanyName: company}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, false, rberr.Wrap(rberr.ErrCodeInternal, err, "update company")
	}
	doc, err := m.GetCompany(ctx, company)
	return doc, res.UpsertedID != nil, err
}

func (m *Mongo) UnsetCompanyField(ctx context.Context, company, field string) (CompanyDoc, error) {
	if err := ValidateCompanyField(field); err != nil {
		return nil, err
	}
	update := bson.M{
		"$unset": bson.M{field: ""},
		"$set":   bson.M{fieldUpdated: m.now()},
	}
	res, err := m.db.Collection(CollectionCompanies).UpdateOne(ctx, bson.M{fieldCompanyName: company}, update)
	if err != nil {
		return nil, rberr.Wrap(rberr.ErrCodeInternal, err, "update company")
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return m.GetCompany(ctx, company)
}

type snapshotDoc struct {
	Year      int               `bson:"year"`
	Records   snapshot.Snapshot `bson:"records"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

func (m *Mongo) LoadSnapshot(ctx context.Context, year int) (snapshot.Snapshot, error) {
	var doc snapshotDoc
	err := m.db.Collection(CollectionSnapshots).FindOne(ctx, bson.M{"year": year}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, rberr.Wrap(rberr.ErrCodeInternal, err, "fetch snapshot %d", year)
	}
	return doc.Records, nil
}

func (m *Mongo) SaveSnapshot(ctx context.Context, year int, s snapshot.Snapshot) error {
	if s == nil {
		s = snapshot.Snapshot{}
	}
	doc := snapshotDoc{Year: year, Records: s, UpdatedAt: m.now()}
	_, err := m.db.Collection(CollectionSnapshots).ReplaceOne(ctx,
		bson.M{"year": year}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return rberr.Wrap(rberr.ErrCodeInternal, err, "save snapshot %d", year)
	}
	return nil
}

func (m *Mongo) SnapshotYears(ctx context.Context) ([]int, error) {
	raw, err := m.db.Collection(CollectionSnapshots).Distinct(ctx, "year", bson.M{})
	if err != nil {
		return nil, rberr.Wrap(rberr.ErrCodeInternal, err, "list snapshot years")
	}
	years := make([]int, 0, len(raw))
	for _, v := range raw {
		switch y := v.(type) {
		case int32:
			years = append(years, int(y))
		case int64:
			years = append(years, int(y))
		}
	}
	slices.Sort(years)
	return years, nil
}

var _ Store = (*Mongo)(nil)

package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	cs "github.com/webtor-io/common-services"
	"golang.org/x/text/unicode/norm"

	"github.com/rtvfan-io/backend/models"
	"github.com/rtvfan-io/backend/services/propagate"
)

// Envelope is one NDJSON line of a candidate batch.
type Envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

const (
	KindShow             = "show"
	KindPerson           = "person"
	KindCastMember       = "cast_member"
	KindEpisode          = "episode"
	KindEpisodeCredit    = "episode_credit"
	KindCreditRetraction = "episode_credit_retraction"
	KindShowImage        = "show_image"
	KindCastPhoto        = "cast_photo"
)

type Summary struct {
	Counts map[string]int
	Pairs  int
}

func (s *Summary) total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

func (s *Summary) String() string {
	var parts []string
	for _, kind := range []string{KindShow, KindPerson, KindCastMember, KindEpisode, KindEpisodeCredit, KindCreditRetraction, KindShowImage, KindCastPhoto} {
		if c := s.Counts[kind]; c > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", humanize.Comma(int64(c)), kind))
		}
	}
	return fmt.Sprintf("%s rows (%s), %s aggregates refreshed",
		humanize.Comma(int64(s.total())), strings.Join(parts, ", "), humanize.Comma(int64(s.Pairs)))
}

// Sink routes candidate rows from ingestion collaborators through the
// identity-keyed upsert operations and triggers one propagation pass per
// batch. Collaborators submit external identities only; every surrogate id
// is resolved or minted here.
type Sink struct {
	pg     *cs.PG
	prop   *propagate.Propagator
	atomic bool

	showIDs     map[string]int64
	personIDs   map[string]int64
	showNamed   map[int64]string
	personNamed map[int64]string
	credits     []*models.EpisodeCredit
}

// NewSink returns a sink for one batch. atomic selects all-or-nothing mode;
// the default applies rows independently, which is safe because every row
// write is self-consistent.
func NewSink(pg *cs.PG, prop *propagate.Propagator, atomic bool) *Sink {
	return &Sink{
		pg:          pg,
		prop:        prop,
		atomic:      atomic,
		showIDs:     map[string]int64{},
		personIDs:   map[string]int64{},
		showNamed:   map[int64]string{},
		personNamed: map[int64]string{},
	}
}

func (s *Sink) Apply(ctx context.Context, r io.Reader) (*Summary, error) {
	db := s.pg.Get()
	if db == nil {
		return nil, errors.New("db not initialized")
	}
	if err := models.VerifySchema(ctx, db); err != nil {
		return nil, err
	}
	sum := &Summary{Counts: map[string]int{}}
	if s.atomic {
		// All-or-nothing mode covers the aggregate refresh too, so a crash
		// can never leave committed facts without their rollup rows.
		err := db.RunInTransaction(ctx, func(tx *pg.Tx) error {
			if err := s.applyAll(ctx, tx, r, sum); err != nil {
				return err
			}
			pairs := propagate.CollectPairs(s.credits)
			sum.Pairs = len(pairs)
			return propagate.RefreshPairs(ctx, tx, pairs)
		})
		if err != nil {
			return nil, err
		}
	} else {
		if err := s.applyAll(ctx, db, r, sum); err != nil {
			return nil, err
		}
		if err := s.prop.CreditsChanged(ctx, s.credits); err != nil {
			return nil, err
		}
		sum.Pairs = len(propagate.CollectPairs(s.credits))
	}
	log.Infof("ingested %s", sum)
	return sum, nil
}

func (s *Sink) applyAll(ctx context.Context, db orm.DB, r io.Reader, sum *Summary) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var env Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return errors.Wrapf(err, "bad candidate envelope at line %d", line)
		}
		if err := s.apply(ctx, db, &env); err != nil {
			return errors.Wrapf(err, "failed to apply %s candidate at line %d", env.Kind, line)
		}
		sum.Counts[env.Kind]++
	}
	return errors.Wrap(scanner.Err(), "failed to read candidate batch")
}

func (s *Sink) apply(ctx context.Context, db orm.DB, env *Envelope) error {
	switch env.Kind {
	case KindShow:
		var c CandidateShow
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return err
		}
		return s.applyShow(ctx, db, &c)
	case KindPerson:
		var c CandidatePerson
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return err
		}
		_, err := s.resolvePerson(ctx, db, &c)
		return err
	case KindCastMember:
		var c CandidateCastMember
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return err
		}
		return s.applyCastMember(ctx, db, &c)
	case KindEpisode:
		var c CandidateEpisode
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return err
		}
		return s.applyEpisode(ctx, db, &c)
	case KindEpisodeCredit:
		var c CandidateEpisodeCredit
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return err
		}
		return s.applyEpisodeCredit(ctx, db, &c)
	case KindCreditRetraction:
		var c CandidateEpisodeCredit
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return err
		}
		return s.applyCreditRetraction(ctx, db, &c)
	case KindShowImage:
		var c CandidateShowImage
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return err
		}
		return s.applyShowImage(ctx, db, &c)
	case KindCastPhoto:
		var c CandidateCastPhoto
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return err
		}
		return s.applyCastPhoto(ctx, db, &c)
	default:
		return errors.Errorf("unknown candidate kind %q", env.Kind)
	}
}

// NormalizeName trims and NFC-normalizes a scraped display name; the
// catalogs disagree about composed vs decomposed accents.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// nameChanged records the name the batch last fanned out for the entity and
// reports whether a fan-out is due. Dependent rows that already carry the
// name are skipped inside the UPDATE statements themselves, so a false
// positive on the first sighting costs a few guarded no-op statements.
func nameChanged(fanned map[int64]string, id int64, name string) bool {
	if name == "" || fanned[id] == name {
		return false
	}
	fanned[id] = name
	return true
}

func (s *Sink) propagateShowName(ctx context.Context, db orm.DB, id int64, name string) error {
	if !nameChanged(s.showNamed, id, name) {
		return nil
	}
	return propagate.ApplyShowName(ctx, db, id, name)
}

func (s *Sink) propagatePersonName(ctx context.Context, db orm.DB, id int64, name string) error {
	if !nameChanged(s.personNamed, id, name) {
		return nil
	}
	return propagate.ApplyPersonName(ctx, db, id, name)
}

func (s *Sink) applyShow(ctx context.Context, db orm.DB, c *CandidateShow) error {
	if c.empty() {
		return errors.New("candidate show carries no external id")
	}
	source := c.Source
	if source == "" {
		source = c.source()
	}
	show := &models.Show{
		Name:               NormalizeName(c.Name),
		IMDBID:             c.IMDBID,
		TMDBID:             c.TMDBID,
		Genres:             models.UnionSorted(c.Genres, nil),
		Keywords:           models.UnionSorted(c.Keywords, nil),
		Tags:               models.UnionSorted(c.Tags, nil),
		Networks:           models.UnionSorted(c.Networks, nil),
		StreamingProviders: models.UnionSorted(c.StreamingProviders, nil),
		ListedOn:           []string{string(source)},
		TVDBID:             c.TVDBID,
		WikidataID:         c.WikidataID,
		Instagram:          c.Instagram,
		Twitter:            c.Twitter,
		NeedsIMDBSync:      !(source == models.SourceIMDB && c.Synced),
		NeedsTMDBSync:      !(source == models.SourceTMDB && c.Synced),
	}
	show, err := models.UpsertShow(ctx, db, show)
	if err != nil {
		return err
	}
	s.showIDs[refKey(c.ExternalRef)] = show.ShowID
	// The upsert lets an incoming name win, so dependent rows caching the
	// old one have to be refreshed in the same pass.
	if err := s.propagateShowName(ctx, db, show.ShowID, show.Name); err != nil {
		return err
	}
	for _, alias := range c.Aliases {
		alias = NormalizeName(alias)
		if alias == "" || alias == show.Name {
			continue
		}
		err = models.UpsertShowAlias(ctx, db, &models.ShowAlias{
			ShowID: show.ShowID,
			Alias:  alias,
			Source: source,
		})
		if err != nil {
			return err
		}
	}
	return models.TouchShowSyncStatus(ctx, db, &models.ShowSyncStatus{
		ShowID: show.ShowID,
		Source: source,
	})
}

func (s *Sink) applyCastMember(ctx context.Context, db orm.DB, c *CandidateCastMember) error {
	showID, showName, err := s.resolveShow(ctx, db, c.Show)
	if err != nil {
		return err
	}
	person, err := s.resolvePerson(ctx, db, &c.Person)
	if err != nil {
		return err
	}
	category := c.Category
	if category == "" {
		category = models.CastCategoryCast
	}
	_, err = models.UpsertCastMembership(ctx, db, &models.CastMembership{
		ShowID:     showID,
		PersonID:   person.PersonID,
		Category:   category,
		ShowName:   showName,
		PersonName: person.Name,
	})
	return err
}

func (s *Sink) applyEpisode(ctx context.Context, db orm.DB, c *CandidateEpisode) error {
	showID, showName, err := s.resolveShow(ctx, db, c.Show)
	if err != nil {
		return err
	}
	season, err := models.EnsureSeason(ctx, db, &models.Season{
		ShowID:   showID,
		Number:   c.SeasonNumber,
		ShowName: showName,
	})
	if err != nil {
		return err
	}
	_, err = models.EnsureEpisode(ctx, db, &models.Episode{
		SeasonID: season.SeasonID,
		ShowID:   showID,
		Number:   c.Number,
		ShowName: showName,
		Title:    c.Title,
		AiredAt:  c.AiredAt,
		IMDBID:   c.IMDBID,
		TMDBID:   c.TMDBID,
	})
	return err
}

func (s *Sink) applyEpisodeCredit(ctx context.Context, db orm.DB, c *CandidateEpisodeCredit) error {
	if c.EpisodeIMDBID == "" {
		return errors.New("episode credit carries no episode id")
	}
	showID, _, err := s.resolveShow(ctx, db, c.Show)
	if err != nil {
		return err
	}
	person, err := s.resolvePerson(ctx, db, &c.Person)
	if err != nil {
		return err
	}
	credit := &models.EpisodeCredit{
		ShowID:        showID,
		PersonID:      person.PersonID,
		SeasonNumber:  c.SeasonNumber,
		EpisodeIMDBID: c.EpisodeIMDBID,
	}
	if err := models.InsertEpisodeCredits(ctx, db, []*models.EpisodeCredit{credit}); err != nil {
		return err
	}
	s.credits = append(s.credits, credit)
	return nil
}

// applyCreditRetraction withdraws a previously recorded fact, typically a
// scraper correction. The affected aggregate is recomputed with the rest of
// the batch, which drops it entirely when no facts survive.
func (s *Sink) applyCreditRetraction(ctx context.Context, db orm.DB, c *CandidateEpisodeCredit) error {
	if c.EpisodeIMDBID == "" {
		return errors.New("credit retraction carries no episode id")
	}
	showID, _, err := s.resolveShow(ctx, db, c.Show)
	if err != nil {
		return err
	}
	person, err := s.resolvePerson(ctx, db, &c.Person)
	if err != nil {
		return err
	}
	deleted, err := models.DeleteEpisodeCredit(ctx, db, showID, person.PersonID, c.EpisodeIMDBID)
	if err != nil {
		return err
	}
	if deleted {
		s.credits = append(s.credits, &models.EpisodeCredit{ShowID: showID, PersonID: person.PersonID})
	}
	return nil
}

func (s *Sink) applyShowImage(ctx context.Context, db orm.DB, c *CandidateShowImage) error {
	showID, _, err := s.resolveShow(ctx, db, c.Show)
	if err != nil {
		return err
	}
	img := &models.ShowImage{
		ImageFields: c.toFields(),
		ShowID:      showID,
	}
	if img.SourceImageID != nil {
		_, err = models.UpsertShowImage(ctx, db, img)
	} else {
		_, err = models.UpsertShowImageByPath(ctx, db, img)
	}
	return err
}

func (s *Sink) applyCastPhoto(ctx context.Context, db orm.DB, c *CandidateCastPhoto) error {
	person, err := s.resolvePerson(ctx, db, &c.Person)
	if err != nil {
		return err
	}
	photo := &models.CastPhoto{
		ImageFields: c.toFields(),
		PersonID:    person.PersonID,
	}
	if photo.SourceImageID != nil {
		_, err = models.UpsertCastPhoto(ctx, db, photo)
	} else {
		_, err = models.UpsertCastPhotoByPath(ctx, db, photo)
	}
	return err
}

func refKey(ref ExternalRef) string {
	if ref.IMDBID != nil {
		return "imdb:" + *ref.IMDBID
	}
	if ref.TMDBID != nil {
		return fmt.Sprintf("tmdb:%d", *ref.TMDBID)
	}
	return ""
}

// resolveShow maps an external reference to a surrogate id, creating a stub
// show on first discovery. Stubs start with both enrichment flags raised.
func (s *Sink) resolveShow(ctx context.Context, db orm.DB, ref ExternalRef) (int64, string, error) {
	if ref.empty() {
		return 0, "", errors.New("candidate carries no show reference")
	}
	key := refKey(ref)
	if id, ok := s.showIDs[key]; ok {
		show, err := models.GetShowByID(ctx, db, id)
		if err != nil {
			return 0, "", err
		}
		if show != nil {
			return show.ShowID, show.Name, nil
		}
	}
	var imdbID string
	var tmdbID int64
	if ref.IMDBID != nil {
		imdbID = *ref.IMDBID
	}
	if ref.TMDBID != nil {
		tmdbID = *ref.TMDBID
	}
	show, err := models.GetShowByExternalID(ctx, db, ref.source(), imdbID, tmdbID)
	if err != nil {
		return 0, "", err
	}
	if show == nil {
		show, err = models.UpsertShow(ctx, db, &models.Show{
			IMDBID:        ref.IMDBID,
			TMDBID:        ref.TMDBID,
			ListedOn:      []string{string(ref.source())},
			NeedsIMDBSync: true,
			NeedsTMDBSync: true,
		})
		if err != nil {
			return 0, "", err
		}
	}
	s.showIDs[key] = show.ShowID
	return show.ShowID, show.Name, nil
}

func (s *Sink) resolvePerson(ctx context.Context, db orm.DB, c *CandidatePerson) (*models.Person, error) {
	name := NormalizeName(c.Name)
	if c.IMDBID == nil && name == "" {
		return nil, errors.New("candidate person carries neither id nor name")
	}
	key := "name:" + name
	if c.IMDBID != nil {
		key = "imdb:" + *c.IMDBID
	}
	if id, ok := s.personIDs[key]; ok {
		p, err := models.GetPersonByID(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	var p *models.Person
	var err error
	if c.IMDBID != nil {
		p, err = models.UpsertPerson(ctx, db, &models.Person{Name: name, IMDBID: c.IMDBID})
		if err == nil {
			err = s.propagatePersonName(ctx, db, p.PersonID, p.Name)
		}
	} else {
		p, err = models.GetPersonByName(ctx, db, name)
		if err == nil && p == nil {
			p, err = models.UpsertPerson(ctx, db, &models.Person{Name: name})
		}
	}
	if err != nil {
		return nil, err
	}
	s.personIDs[key] = p.PersonID
	return p, nil
}

package ingest

import (
	"time"

	"github.com/rtvfan-io/backend/models"
)

// ExternalRef is how ingestion collaborators point at a show: by whichever
// catalog id they scraped. Collaborators never see surrogate ids.
type ExternalRef struct {
	IMDBID *string `json:"imdb_id,omitempty"`
	TMDBID *int64  `json:"tmdb_id,omitempty"`
}

func (r ExternalRef) empty() bool {
	return r.IMDBID == nil && r.TMDBID == nil
}

func (r ExternalRef) source() models.Source {
	if r.IMDBID != nil {
		return models.SourceIMDB
	}
	return models.SourceTMDB
}

type CandidateShow struct {
	ExternalRef
	Source models.Source `json:"source"`
	Name   string        `json:"name"`

	Genres             []string `json:"genres,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Networks           []string `json:"networks,omitempty"`
	StreamingProviders []string `json:"streaming_providers,omitempty"`
	Aliases            []string `json:"aliases,omitempty"`

	TVDBID     *int64  `json:"tvdb_id,omitempty"`
	WikidataID *string `json:"wikidata_id,omitempty"`
	Instagram  *string `json:"instagram,omitempty"`
	Twitter    *string `json:"twitter,omitempty"`

	// Synced marks the candidate as a complete read of its source, which
	// resolves the per-source "awaiting enrichment" flag.
	Synced bool `json:"synced,omitempty"`
}

type CandidatePerson struct {
	IMDBID *string `json:"imdb_id,omitempty"`
	Name   string  `json:"name"`
}

type CandidateCastMember struct {
	Show     ExternalRef         `json:"show"`
	Person   CandidatePerson     `json:"person"`
	Category models.CastCategory `json:"category"`
}

type CandidateEpisode struct {
	Show         ExternalRef `json:"show"`
	SeasonNumber int16       `json:"season_number"`
	Number       int16       `json:"number"`
	Title        *string     `json:"title,omitempty"`
	AiredAt      *time.Time  `json:"aired_at,omitempty"`
	IMDBID       *string     `json:"imdb_id,omitempty"`
	TMDBID       *int64      `json:"tmdb_id,omitempty"`
}

type CandidateEpisodeCredit struct {
	Show          ExternalRef     `json:"show"`
	Person        CandidatePerson `json:"person"`
	SeasonNumber  int16           `json:"season_number"`
	EpisodeIMDBID string          `json:"episode_imdb_id"`
}

// ImagePayload carries whatever reading of an asset the source produced.
// Which upsert identity applies depends on whether the source assigned the
// asset a native id.
type ImagePayload struct {
	Source        models.Source    `json:"source"`
	SourceImageID *string          `json:"source_image_id,omitempty"`
	Kind          models.ImageKind `json:"kind"`
	Path          string           `json:"path"`
	URL           *string          `json:"url,omitempty"`
	Width         *int             `json:"width,omitempty"`
	Height        *int             `json:"height,omitempty"`
	Attrs         map[string]any   `json:"attrs,omitempty"`
	FetchedAt     *time.Time       `json:"fetched_at,omitempty"`
}

type CandidateShowImage struct {
	Show ExternalRef `json:"show"`
	ImagePayload
}

type CandidateCastPhoto struct {
	Person CandidatePerson `json:"person"`
	ImagePayload
}

func (p *ImagePayload) toFields() *models.ImageFields {
	f := &models.ImageFields{
		Source:        p.Source,
		SourceImageID: p.SourceImageID,
		Kind:          p.Kind,
		Path:          p.Path,
		URL:           p.URL,
		Width:         p.Width,
		Height:        p.Height,
		Attrs:         p.Attrs,
		FetchedAt:     p.FetchedAt,
	}
	if p.Width != nil && p.Height != nil && *p.Height > 0 {
		ar := float64(*p.Width) / float64(*p.Height)
		f.AspectRatio = &ar
	}
	return f
}

package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

type ImageKind string

const (
	ImageKindPoster   ImageKind = "poster"
	ImageKindBackdrop ImageKind = "backdrop"
	ImageKindProfile  ImageKind = "profile"
	ImageKindStill    ImageKind = "still"
)

// ImageFields is the shared payload of show images and cast photos. The
// hosted_* columns belong to the object-store mirroring collaborator; this
// subsystem only carries them through merges.
type ImageFields struct {
	Source        Source         `pg:"source"`
	SourceImageID *string        `pg:"source_image_id"`
	Kind          ImageKind      `pg:"kind"`
	Path          string         `pg:"path"`
	URL           *string        `pg:"url"`
	Width         *int           `pg:"width"`
	Height        *int           `pg:"height"`
	AspectRatio   *float64       `pg:"aspect_ratio"`
	HostedURL     *string        `pg:"hosted_url"`
	HostedHash    *string        `pg:"hosted_hash"`
	HostedSize    *int64         `pg:"hosted_size_bytes"`
	Attrs         map[string]any `pg:"attrs,type:jsonb"`
	FetchedAt     *time.Time     `pg:"fetched_at"`
}

type ShowImage struct {
	*ImageFields
	tableName struct{} `pg:"show_images,alias:show_image"`

	ShowImageID uuid.UUID `pg:"show_image_id,pk,type:uuid,default:uuid_generate_v4()"`
	ShowID      int64     `pg:"show_id,use_zero"`
	CreatedAt   time.Time `pg:"created_at,default:now()"`
	UpdatedAt   time.Time `pg:"updated_at,default:now()"`
}

type CastPhoto struct {
	*ImageFields
	tableName struct{} `pg:"cast_photos,alias:cast_photo"`

	CastPhotoID uuid.UUID `pg:"cast_photo_id,pk,type:uuid,default:uuid_generate_v4()"`
	PersonID    int64     `pg:"person_id,use_zero"`
	CreatedAt   time.Time `pg:"created_at,default:now()"`
	UpdatedAt   time.Time `pg:"updated_at,default:now()"`
}

// MergeImageFields resolves an incoming reading against the stored one under
// the never-downgrade policy: width is monotonic, the quality-bearing fields
// (url, path, height, aspect ratio) follow whichever reading has the strictly
// larger width, everything else fills nulls or lets the incoming value win.
// It is the in-memory mirror of the SQL produced by imageConflictSet and is
// what makes the rule testable without a store.
func MergeImageFields(existing, incoming *ImageFields) *ImageFields {
	out := *existing

	incomingSharper := widthOf(incoming) > widthOf(existing)
	if incomingSharper {
		out.Width = incoming.Width
		out.URL = coalesceStr(incoming.URL, existing.URL)
		if incoming.Path != "" {
			out.Path = incoming.Path
		}
		out.Height = coalesceInt(incoming.Height, existing.Height)
		out.AspectRatio = coalesceFloat(incoming.AspectRatio, existing.AspectRatio)
	} else {
		out.URL = coalesceStr(existing.URL, incoming.URL)
		if out.Path == "" {
			out.Path = incoming.Path
		}
		out.Height = coalesceInt(existing.Height, incoming.Height)
		out.AspectRatio = coalesceFloat(existing.AspectRatio, incoming.AspectRatio)
	}

	out.SourceImageID = coalesceStr(existing.SourceImageID, incoming.SourceImageID)
	if incoming.Kind != "" {
		out.Kind = incoming.Kind
	}
	out.HostedURL = coalesceStr(incoming.HostedURL, existing.HostedURL)
	out.HostedHash = coalesceStr(incoming.HostedHash, existing.HostedHash)
	out.HostedSize = coalesceInt64(incoming.HostedSize, existing.HostedSize)
	out.FetchedAt = coalesceTime(incoming.FetchedAt, existing.FetchedAt)

	if len(incoming.Attrs) > 0 {
		merged := map[string]any{}
		for k, v := range existing.Attrs {
			merged[k] = v
		}
		for k, v := range incoming.Attrs {
			merged[k] = v
		}
		out.Attrs = merged
	}
	return &out
}

func widthOf(f *ImageFields) int {
	if f == nil || f.Width == nil {
		return -1
	}
	return *f.Width
}

func coalesceStr(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

func coalesceInt(a, b *int) *int {
	if a != nil {
		return a
	}
	return b
}

func coalesceInt64(a, b *int64) *int64 {
	if a != nil {
		return a
	}
	return b
}

func coalesceFloat(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

func coalesceTime(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}

// imageConflictSet renders the never-downgrade policy as the SET list of an
// INSERT ... ON CONFLICT DO UPDATE, so the whole resolution executes as one
// atomic statement against the conflicting row. alias is the table alias of
// the stored row ("show_image" / "cast_photo").
func imageConflictSet(alias string) string {
	followsWidth := func(col string) string {
		return fmt.Sprintf(
			"%[2]s = CASE WHEN coalesce(EXCLUDED.width, -1) > coalesce(%[1]s.width, -1)"+
				" THEN coalesce(EXCLUDED.%[2]s, %[1]s.%[2]s)"+
				" ELSE coalesce(%[1]s.%[2]s, EXCLUDED.%[2]s) END",
			alias, col)
	}
	parts := []string{
		followsWidth("url"),
		fmt.Sprintf("path = CASE WHEN coalesce(EXCLUDED.width, -1) > coalesce(%[1]s.width, -1) AND EXCLUDED.path <> ''"+
			" THEN EXCLUDED.path"+
			" ELSE CASE WHEN %[1]s.path = '' THEN EXCLUDED.path ELSE %[1]s.path END END", alias),
		followsWidth("height"),
		followsWidth("aspect_ratio"),
		fmt.Sprintf("width = greatest(%s.width, EXCLUDED.width)", alias),
		fmt.Sprintf("source_image_id = coalesce(%s.source_image_id, EXCLUDED.source_image_id)", alias),
		fmt.Sprintf("kind = CASE WHEN EXCLUDED.kind <> '' THEN EXCLUDED.kind ELSE %s.kind END", alias),
		fmt.Sprintf("hosted_url = coalesce(EXCLUDED.hosted_url, %s.hosted_url)", alias),
		fmt.Sprintf("hosted_hash = coalesce(EXCLUDED.hosted_hash, %s.hosted_hash)", alias),
		fmt.Sprintf("hosted_size_bytes = coalesce(EXCLUDED.hosted_size_bytes, %s.hosted_size_bytes)", alias),
		fmt.Sprintf("attrs = coalesce(%s.attrs, '{}'::jsonb) || coalesce(EXCLUDED.attrs, '{}'::jsonb)", alias),
		fmt.Sprintf("fetched_at = coalesce(EXCLUDED.fetched_at, %s.fetched_at)", alias),
		"updated_at = now()",
	}
	return strings.Join(parts, ",\n")
}

const (
	imagePrimaryConflict   = "(%s, source, source_image_id) WHERE source_image_id IS NOT NULL DO UPDATE"
	imageSecondaryConflict = "(%s, source, kind, path) DO UPDATE"
)

// UpsertShowImage inserts or merges by the primary identity key
// (show, source, source-native image id).
func UpsertShowImage(ctx context.Context, db orm.DB, img *ShowImage) (*ShowImage, error) {
	if img.SourceImageID == nil {
		return nil, errors.New("show image candidate carries no source image id")
	}
	return upsertShowImage(ctx, db, img, fmt.Sprintf(imagePrimaryConflict, "show_id"))
}

// UpsertShowImageByPath inserts or merges by the secondary identity key
// (show, source, kind, path), for discovery paths that lack a native id.
func UpsertShowImageByPath(ctx context.Context, db orm.DB, img *ShowImage) (*ShowImage, error) {
	if img.Path == "" {
		return nil, errors.New("show image candidate carries no path")
	}
	return upsertShowImage(ctx, db, img, fmt.Sprintf(imageSecondaryConflict, "show_id"))
}

func upsertShowImage(ctx context.Context, db orm.DB, img *ShowImage, conflict string) (*ShowImage, error) {
	_, err := db.ModelContext(ctx, img).
		OnConflict(conflict).
		Set(imageConflictSet("show_image")).
		Returning("*").
		Insert()
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert show image")
	}
	return img, nil
}

// UpsertCastPhoto inserts or merges by the primary identity key
// (person, source, source-native image id).
func UpsertCastPhoto(ctx context.Context, db orm.DB, photo *CastPhoto) (*CastPhoto, error) {
	if photo.SourceImageID == nil {
		return nil, errors.New("cast photo candidate carries no source image id")
	}
	return upsertCastPhoto(ctx, db, photo, fmt.Sprintf(imagePrimaryConflict, "person_id"))
}

// UpsertCastPhotoByPath inserts or merges by the secondary identity key
// (person, source, kind, path).
func UpsertCastPhotoByPath(ctx context.Context, db orm.DB, photo *CastPhoto) (*CastPhoto, error) {
	if photo.Path == "" {
		return nil, errors.New("cast photo candidate carries no path")
	}
	return upsertCastPhoto(ctx, db, photo, fmt.Sprintf(imageSecondaryConflict, "person_id"))
}

func upsertCastPhoto(ctx context.Context, db orm.DB, photo *CastPhoto, conflict string) (*CastPhoto, error) {
	_, err := db.ModelContext(ctx, photo).
		OnConflict(conflict).
		Set(imageConflictSet("cast_photo")).
		Returning("*").
		Insert()
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert cast photo")
	}
	return photo, nil
}

func GetCastPhotosByPersonID(ctx context.Context, db orm.DB, personID int64) ([]*CastPhoto, error) {
	var photos []*CastPhoto
	err := db.ModelContext(ctx, &photos).
		Where("person_id = ?", personID).
		Order("kind ASC", "width DESC NULLS LAST").
		Select()
	if err != nil {
		return nil, err
	}
	return photos, nil
}

func GetShowImagesByShowID(ctx context.Context, db orm.DB, showID int64) ([]*ShowImage, error) {
	var images []*ShowImage
	err := db.ModelContext(ctx, &images).
		Where("show_id = ?", showID).
		Order("kind ASC", "width DESC NULLS LAST").
		Select()
	if err != nil {
		return nil, err
	}
	return images, nil
}

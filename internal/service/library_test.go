package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
)

func TestLibrary_ToggleLike_Song42(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t)
	lib := NewLibraryService(f.users, nil)
	ctx := context.Background()

	id, err := lib.ToggleLike(ctx, u.ID, model.KindSong, "song42")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !slices.Equal(id.LikedSongs, []string{"song42"}) {
		t.Fatalf("after first toggle: %v", id.LikedSongs)
	}

	id, err = lib.ToggleLike(ctx, u.ID, model.KindSong, "song42")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if len(id.LikedSongs) != 0 {
		t.Fatalf("after second toggle: %v", id.LikedSongs)
	}
}

func TestLibrary_ToggleLike_PlaylistAndErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t)
	lib := NewLibraryService(f.users, nil)
	ctx := context.Background()

	id, err := lib.ToggleLike(ctx, u.ID, model.KindPlaylist, "p1")
	if err != nil || !slices.Equal(id.LikedPlaylists, []string{"p1"}) || len(id.LikedSongs) != 0 {
		t.Fatalf("playlist like: %+v %v", id, err)
	}

	if _, err := lib.ToggleLike(ctx, uuid.Must(uuid.NewV4()), model.KindSong, "s"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
	if _, err := lib.ToggleLike(ctx, u.ID, model.Kind("album"), "s"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("unknown kind: %v", err)
	}
	if _, err := lib.ToggleLike(ctx, u.ID, model.KindSong, ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("empty target: %v", err)
	}

	f.users.setErr = errors.New("timeout")
	_, err = lib.ToggleLike(ctx, u.ID, model.KindSong, "s")
	if !errors.Is(err, errs.ErrUnavailable) || errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("store failure: %v", err)
	}
}

func TestLibrary_AddUpload_AddOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t)
	lib := NewLibraryService(f.users, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		id, err := lib.AddUpload(ctx, u.ID, model.KindSong, "s1")
		if err != nil {
			t.Fatalf("AddUpload: %v", err)
		}
		if !slices.Equal(id.UploadedSongs, []string{"s1"}) {
			t.Fatalf("iteration %d: %v", i, id.UploadedSongs)
		}
	}

	id, err := lib.AddUpload(ctx, u.ID, model.KindPlaylist, "p1")
	if err != nil || !slices.Equal(id.CreatedPlaylists, []string{"p1"}) {
		t.Fatalf("created playlist: %+v %v", id, err)
	}

	id, err = lib.RemoveCreatedPlaylist(ctx, u.ID, "p1")
	if err != nil || len(id.CreatedPlaylists) != 0 {
		t.Fatalf("remove playlist: %+v %v", id, err)
	}
	// removing again is harmless
	if _, err := lib.RemoveCreatedPlaylist(ctx, u.ID, "p1"); err != nil {
		t.Fatalf("remove twice: %v", err)
	}

	if _, err := lib.AddUpload(ctx, uuid.Must(uuid.NewV4()), model.KindSong, "s"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestLibrary_GetUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seed(t)
	lib := NewLibraryService(f.users, nil)
	ctx := context.Background()

	id, err := lib.GetUser(ctx, u.ID)
	if err != nil || id.Username != "alice" {
		t.Fatalf("GetUser: %+v %v", id, err)
	}
	if _, err := lib.GetUser(ctx, uuid.Must(uuid.NewV4())); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
}

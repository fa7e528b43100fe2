package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/models"
	"classdrive/repository"
)

// journal records side effects across the fakes so tests can assert on
// the order of a multi-step operation, not just its end state.
type journal struct {
	events []string
}

func (j *journal) record(event string) {
	if j != nil {
		j.events = append(j.events, event)
	}
}

type fakeItemRepo struct {
	items     map[primitive.ObjectID]*models.Item
	insertErr error
	log       *journal
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[primitive.ObjectID]*models.Item)}
}

// add seeds an item directly, assigning an id when missing. Timestamps
// are left alone so tests control sort order.
func (r *fakeItemRepo) add(item *models.Item) *models.Item {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	r.items[item.ID] = item
	return item
}

func (r *fakeItemRepo) Insert(_ context.Context, item *models.Item) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return item, nil
}

func (r *fakeItemRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Item, error) {
	out := make(map[primitive.ObjectID]*models.Item)
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (r *fakeItemRepo) Patch(_ context.Context, id primitive.ObjectID, patch repository.ItemPatch) error {
	item, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Parent.Set {
		item.ParentID = patch.Parent.ID
	}
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeItemRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	item, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.log.record("items.delete:" + item.Name)
	delete(r.items, id)
	return nil
}

func (r *fakeItemRepo) ChildrenOf(_ context.Context, parentID primitive.ObjectID) ([]*models.Item, error) {
	var children []*models.Item
	for _, item := range r.items {
		if item.ParentID != nil && *item.ParentID == parentID {
			children = append(children, item)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

func (r *fakeItemRepo) Search(_ context.Context, q repository.ItemQuery) ([]*models.Item, error) {
	matches := r.matching(q)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	if q.Offset > 0 {
		if q.Offset >= int64(len(matches)) {
			matches = nil
		} else {
			matches = matches[q.Offset:]
		}
	}
	if q.Limit > 0 && int64(len(matches)) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func (r *fakeItemRepo) Count(_ context.Context, q repository.ItemQuery) (int64, error) {
	return int64(len(r.matching(q))), nil
}

func (r *fakeItemRepo) CountByKind(_ context.Context) (map[models.ItemKind]int64, error) {
	counts := make(map[models.ItemKind]int64, 2)
	for _, item := range r.items {
		counts[item.Kind]++
	}
	return counts, nil
}

func (r *fakeItemRepo) TotalFileBytes(_ context.Context) (int64, error) {
	var total int64
	for _, item := range r.items {
		if item.Kind == models.ItemKindFile && item.FileMetadata != nil {
			total += item.FileMetadata.Size
		}
	}
	return total, nil
}

// matching mirrors the mongo filter semantics: trashed always excluded,
// visibility as owner-or-shared, substring matches case-insensitive.
func (r *fakeItemRepo) matching(q repository.ItemQuery) []*models.Item {
	var matches []*models.Item
	for _, item := range r.items {
		if item.IsTrashed {
			continue
		}
		if q.Visibility != nil && !visibleTo(item, q.Visibility) {
			continue
		}
		if q.NameContains != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(q.NameContains)) {
			continue
		}
		if q.Kind != "" && item.Kind != q.Kind {
			continue
		}
		if q.MimeContains != "" {
			if item.FileMetadata == nil || !strings.Contains(strings.ToLower(item.FileMetadata.MimeType), strings.ToLower(q.MimeContains)) {
				continue
			}
		}
		if q.OwnerID != nil && item.OwnerID != *q.OwnerID {
			continue
		}
		if q.Parent.Set {
			if q.Parent.ID == nil {
				if item.ParentID != nil {
					continue
				}
			} else if item.ParentID == nil || *item.ParentID != *q.Parent.ID {
				continue
			}
		}
		matches = append(matches, item)
	}
	return matches
}

func visibleTo(item *models.Item, v *repository.Visibility) bool {
	if item.OwnerID == v.UserID {
		return true
	}
	for _, id := range v.SharedItemIDs {
		if item.ID == id {
			return true
		}
	}
	return false
}

type fakeGrantRepo struct {
	grants []*models.ShareGrant
	log    *journal

	// beforeUpsert runs at the top of Upsert so a test can interleave
	// another operation between a caller's gate check and the write.
	beforeUpsert func()
}

func newFakeGrantRepo() *fakeGrantRepo {
	return &fakeGrantRepo{}
}

func (r *fakeGrantRepo) add(itemID, granteeID primitive.ObjectID, level models.ShareLevel) *models.ShareGrant {
	grant := &models.ShareGrant{
		ID:        primitive.NewObjectID(),
		ItemID:    itemID,
		GranteeID: granteeID,
		Level:     level,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	r.grants = append(r.grants, grant)
	return grant
}

func (r *fakeGrantRepo) Upsert(_ context.Context, itemID, granteeID primitive.ObjectID, level models.ShareLevel) (*models.ShareGrant, error) {
	if r.beforeUpsert != nil {
		r.beforeUpsert()
	}
	for _, grant := range r.grants {
		if grant.ItemID == itemID && grant.GranteeID == granteeID {
			grant.Level = level
			grant.UpdatedAt = time.Now().UTC()
			return grant, nil
		}
	}
	return r.add(itemID, granteeID, level), nil
}

func (r *fakeGrantRepo) Find(_ context.Context, itemID, granteeID primitive.ObjectID) (*models.ShareGrant, error) {
	for _, grant := range r.grants {
		if grant.ItemID == itemID && grant.GranteeID == granteeID {
			return grant, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeGrantRepo) Delete(_ context.Context, itemID, granteeID primitive.ObjectID) error {
	for i, grant := range r.grants {
		if grant.ItemID == itemID && grant.GranteeID == granteeID {
			r.grants = append(r.grants[:i], r.grants[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeGrantRepo) DeleteByItems(_ context.Context, itemIDs []primitive.ObjectID) (int64, error) {
	r.log.record("grants.delete_by_items")
	targets := make(map[primitive.ObjectID]bool, len(itemIDs))
	for _, id := range itemIDs {
		targets[id] = true
	}
	var kept []*models.ShareGrant
	var removed int64
	for _, grant := range r.grants {
		if targets[grant.ItemID] {
			removed++
			continue
		}
		kept = append(kept, grant)
	}
	r.grants = kept
	return removed, nil
}

func (r *fakeGrantRepo) ListByItem(_ context.Context, itemID primitive.ObjectID) ([]*models.ShareGrant, error) {
	var out []*models.ShareGrant
	for _, grant := range r.grants {
		if grant.ItemID == itemID {
			out = append(out, grant)
		}
	}
	return out, nil
}

func (r *fakeGrantRepo) ListByGrantee(_ context.Context, granteeID primitive.ObjectID) ([]*models.ShareGrant, error) {
	var out []*models.ShareGrant
	for _, grant := range r.grants {
		if grant.GranteeID == granteeID {
			out = append(out, grant)
		}
	}
	return out, nil
}

func (r *fakeGrantRepo) ItemIDsSharedWith(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	for _, grant := range r.grants {
		if grant.GranteeID == userID {
			ids = append(ids, grant.ItemID)
		}
	}
	return ids, nil
}

func (r *fakeGrantRepo) LevelsFor(_ context.Context, userID primitive.ObjectID, itemIDs []primitive.ObjectID) (map[primitive.ObjectID]models.ShareLevel, error) {
	wanted := make(map[primitive.ObjectID]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	levels := make(map[primitive.ObjectID]models.ShareLevel)
	for _, grant := range r.grants {
		if grant.GranteeID == userID && wanted[grant.ItemID] {
			levels[grant.ItemID] = grant.Level
		}
	}
	return levels, nil
}

func (r *fakeGrantRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.grants)), nil
}

type fakeUserRepo struct {
	users []*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{}
}

func (r *fakeUserRepo) add(username string, role models.UserRole) *models.User {
	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: username,
		Email:    username + "@school.test",
		Role:     role,
	}
	r.users = append(r.users, user)
	return user
}

func (r *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	wanted := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make(map[primitive.ObjectID]*models.User)
	for _, user := range r.users {
		if wanted[user.ID] {
			out[user.ID] = user
		}
	}
	return out, nil
}

func (r *fakeUserRepo) List(_ context.Context, limit, offset int64) ([]*models.User, int64, error) {
	total := int64(len(r.users))
	if offset >= total {
		return nil, total, nil
	}
	page := r.users[offset:]
	if limit > 0 && int64(len(page)) > limit {
		page = page[:limit]
	}
	return page, total, nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id primitive.ObjectID, role models.UserRole) error {
	for _, user := range r.users {
		if user.ID == id {
			user.Role = role
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeUserRepo) CountByRole(_ context.Context) (map[models.UserRole]int64, error) {
	counts := make(map[models.UserRole]int64)
	for _, user := range r.users {
		counts[user.Role]++
	}
	return counts, nil
}

type fakeBlobStore struct {
	objects map[string][]byte
	putErr  error
	log     *journal
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	if s.putErr != nil {
		return 0, s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.objects[key] = data
	s.log.record("blob.put:" + key)
	return int64(len(data)), nil
}

func (s *fakeBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeBlobStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) error {
	s.log.record("blob.delete:" + key)
	delete(s.objects, key)
	return nil
}

// testEnv wires every service over the fakes, the same way main wires
// them over mongo.
type testEnv struct {
	items  *fakeItemRepo
	grants *fakeGrantRepo
	users  *fakeUserRepo
	blobs  *fakeBlobStore
	log    *journal

	access  *AccessService
	itemSvc *ItemService
	shares  *ShareService
	search  *SearchService
	admin   *AdminService
}

func newTestEnv() *testEnv {
	log := &journal{}
	items := newFakeItemRepo()
	items.log = log
	grants := newFakeGrantRepo()
	grants.log = log
	users := newFakeUserRepo()
	blobs := newFakeBlobStore()
	blobs.log = log

	repos := &repository.Repositories{Items: items, Grants: grants, Users: users}
	access := NewAccessService(items, grants)

	return &testEnv{
		items:   items,
		grants:  grants,
		users:   users,
		blobs:   blobs,
		log:     log,
		access:  access,
		itemSvc: NewItemService(repos, access, blobs),
		shares:  NewShareService(repos),
		search:  NewSearchService(repos),
		admin:   NewAdminService(repos),
	}
}

func principalFor(user *models.User) models.Principal {
	return models.Principal{UserID: user.ID, Role: user.Role}
}

func folder(owner *models.User, name string, parent *primitive.ObjectID) *models.Item {
	now := time.Now().UTC()
	return &models.Item{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Kind:      models.ItemKindFolder,
		OwnerID:   owner.ID,
		ParentID:  parent,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func file(owner *models.User, name, mimeType string, parent *primitive.ObjectID) *models.Item {
	now := time.Now().UTC()
	return &models.Item{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Kind:     models.ItemKindFile,
		OwnerID:  owner.ID,
		ParentID: parent,
		FileMetadata: &models.FileMetadata{
			MimeType:   mimeType,
			Size:       int64(len(name)),
			StorageKey: "test/" + name,
			Version:    1,
			Category:   CategoryForMimeType(mimeType),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

package service

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/pu-ac-cn/club-backend/internal/model"
	"github.com/pu-ac-cn/club-backend/internal/repository"
)

// mockClubRepository 内存中的社团仓库
type mockClubRepository struct {
	clubs  map[uint]*model.Club
	nextID uint

	createFn func(ctx context.Context, club *model.Club) error
	listFn   func(ctx context.Context, criteria *repository.ClubCriteria) error
}

func newMockClubRepository() *mockClubRepository {
	return &mockClubRepository{
		clubs:  make(map[uint]*model.Club),
		nextID: 1,
	}
}

// seed 直接写入记录，返回分配的 ID
func (m *mockClubRepository) seed(club *model.Club) uint {
	club.ID = m.nextID
	m.nextID++
	copied := *club
	m.clubs[club.ID] = &copied
	return club.ID
}

func (m *mockClubRepository) nameTaken(name string, except uint) bool {
	for id, c := range m.clubs {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func (m *mockClubRepository) Create(ctx context.Context, club *model.Club) error {
	if m.createFn != nil {
		return m.createFn(ctx, club)
	}
	if m.nameTaken(club.Name, 0) {
		return repository.ErrClubNameExists
	}
	m.seed(club)
	return nil
}

func (m *mockClubRepository) GetByID(ctx context.Context, id uint) (*model.Club, error) {
	club, ok := m.clubs[id]
	if !ok {
		return nil, repository.ErrClubNotFound
	}
	copied := *club
	return &copied, nil
}

func (m *mockClubRepository) Save(ctx context.Context, club *model.Club) error {
	if m.nameTaken(club.Name, club.ID) {
		return repository.ErrClubNameExists
	}
	copied := *club
	m.clubs[club.ID] = &copied
	return nil
}

func (m *mockClubRepository) Delete(ctx context.Context, id uint) error {
	if _, ok := m.clubs[id]; !ok {
		return repository.ErrClubNotFound
	}
	delete(m.clubs, id)
	return nil
}

func (m *mockClubRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return m.nameTaken(name, 0), nil
}

func (m *mockClubRepository) List(ctx context.Context, criteria *repository.ClubCriteria, s repository.Sort, page *repository.Pagination) ([]*model.Club, int64, error) {
	all, err := m.Find(ctx, criteria, s)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(all))
	if page == nil || page.PageSize <= 0 {
		return all, total, nil
	}
	start := page.Offset()
	if start >= len(all) {
		return []*model.Club{}, total, nil
	}
	end := start + page.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *mockClubRepository) Find(ctx context.Context, criteria *repository.ClubCriteria, s repository.Sort) ([]*model.Club, error) {
	if m.listFn != nil {
		if err := m.listFn(ctx, criteria); err != nil {
			return nil, err
		}
	}
	if !repository.IsSortable(s.Field) {
		return nil, repository.ErrInvalidSortField
	}

	result := []*model.Club{}
	for _, c := range m.clubs {
		if matches(c, criteria) {
			copied := *c
			result = append(result, &copied)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		cmp := compareField(a, b, s.Field)
		if cmp == 0 {
			return a.ID < b.ID
		}
		if s.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return result, nil
}

func matches(c *model.Club, cr *repository.ClubCriteria) bool {
	if cr == nil {
		return true
	}
	if cr.Keyword != "" {
		kw := strings.ToLower(cr.Keyword)
		if !strings.Contains(strings.ToLower(c.Name), kw) &&
			!strings.Contains(strings.ToLower(c.President), kw) &&
			!strings.Contains(strings.ToLower(c.Description), kw) {
			return false
		}
	}
	if cr.Category != "" && c.Category != cr.Category {
		return false
	}
	if cr.Status != "" && c.Status != cr.Status {
		return false
	}
	if cr.StartDate != nil && (c.EstablishedDate.IsZero() || c.EstablishedDate.Before(*cr.StartDate)) {
		return false
	}
	if cr.EndDate != nil && (c.EstablishedDate.IsZero() || c.EstablishedDate.After(*cr.EndDate)) {
		return false
	}
	if cr.MinMembers != nil && c.CurrentMembers < *cr.MinMembers {
		return false
	}
	if cr.MaxMembers != nil && c.CurrentMembers > *cr.MaxMembers {
		return false
	}
	if cr.President != "" && !strings.Contains(strings.ToLower(c.President), strings.ToLower(cr.President)) {
		return false
	}
	if cr.OnlyActive && c.Status != model.StatusActive {
		return false
	}
	return true
}

func compareField(a, b *model.Club, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "currentMembers":
		return a.CurrentMembers - b.CurrentMembers
	case "activitiesCount":
		return a.ActivitiesCount - b.ActivitiesCount
	case "establishedDate":
		return a.EstablishedDate.Compare(b.EstablishedDate.Time)
	default:
		return int(a.ID) - int(b.ID)
	}
}

func (m *mockClubRepository) FindByIDs(ctx context.Context, ids []uint) ([]*model.Club, error) {
	result := []*model.Club{}
	for _, id := range ids {
		if c, ok := m.clubs[id]; ok {
			copied := *c
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockClubRepository) SaveAll(ctx context.Context, clubs []*model.Club) error {
	for _, c := range clubs {
		if err := m.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockClubRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	for _, id := range ids {
		delete(m.clubs, id)
	}
	return nil
}

func (m *mockClubRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.clubs)), nil
}

func (m *mockClubRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	for _, c := range m.clubs {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *mockClubRepository) SumCurrentMembers(ctx context.Context) (int64, error) {
	var sum int64
	for _, c := range m.clubs {
		sum += int64(c.CurrentMembers)
	}
	return sum, nil
}

func (m *mockClubRepository) CountByCategory(ctx context.Context) (map[string]int64, error) {
	result := make(map[string]int64)
	for _, c := range m.clubs {
		result[c.Category]++
	}
	return result, nil
}

func (m *mockClubRepository) CountByMemberRange(ctx context.Context, lower int, upper *int) (int64, error) {
	var n int64
	for _, c := range m.clubs {
		if c.CurrentMembers >= lower && (upper == nil || c.CurrentMembers <= *upper) {
			n++
		}
	}
	return n, nil
}

func (m *mockClubRepository) DistinctCampuses(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	result := []string{}
	for _, c := range m.clubs {
		if c.Campus != nil && !seen[*c.Campus] {
			seen[*c.Campus] = true
			result = append(result, *c.Campus)
		}
	}
	sort.Strings(result)
	return result, nil
}

// mockFileStore 记录保存调用的文件存储
type mockFileStore struct {
	saved []string
	err   error
}

func (m *mockFileStore) Save(r io.Reader, originalName, subDir string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, _ := io.ReadAll(r)
	url := "/uploads/" + subDir + "/" + string(rune('a'+len(m.saved))) + "-" + originalName
	m.saved = append(m.saved, string(data))
	return url, nil
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"erpcore/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type MemorySuite struct {
	suite.Suite
	ctx context.Context
	s   *Memory
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemorySuite))
}

func (s *MemorySuite) SetupTest() {
	s.ctx = context.Background()
	s.s = NewMemory()
}

func (s *MemorySuite) newUser(cpf, email string) *models.User {
	u := &models.User{ID: uuid.New(), FirstName: "Ana", LastName: "Lima", CPF: cpf, Email: email, Role: models.RoleUser, IsActive: true}
	s.Require().NoError(s.s.Users().Create(s.ctx, u))
	return u
}

func (s *MemorySuite) newAddress(userID uuid.UUID, street string, primary bool) *models.Address {
	a := &models.Address{ID: uuid.New(), UserID: userID, Street: street, City: "São Paulo", State: "SP", ZipCode: "01000-000", Country: "Brasil", IsPrimary: primary}
	s.Require().NoError(s.s.Addresses().Create(s.ctx, a))
	return a
}

func (s *MemorySuite) TestUniqueCPFAndEmail() {
	s.newUser("11144477735", "ana@example.com")

	err := s.s.Users().Create(s.ctx, &models.User{ID: uuid.New(), CPF: "52998224725", Email: "ANA@example.com"})
	s.ErrorIs(err, ErrConflict)

	err = s.s.Users().Create(s.ctx, &models.User{ID: uuid.New(), CPF: "11144477735", Email: "other@example.com"})
	s.ErrorIs(err, ErrConflict)

	ok, err := s.s.Users().ExistsByEmail(s.ctx, "Ana@Example.com", nil)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *MemorySuite) TestExistsExcludesSelf() {
	u := s.newUser("11144477735", "ana@example.com")
	ok, err := s.s.Users().ExistsByCPF(s.ctx, "11144477735", &u.ID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *MemorySuite) TestRunInTxRollsBack() {
	u := s.newUser("11144477735", "ana@example.com")
	boom := errors.New("boom")

	err := s.s.RunInTx(s.ctx, func(tx Store) error {
		s.newAddressIn(tx, u.ID)
		return boom
	})
	s.ErrorIs(err, boom)

	n, err := s.s.Addresses().CountByUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *MemorySuite) TestRollbackKeepsWritesMadeOutsideTheTx() {
	u := s.newUser("11144477735", "ana@example.com")
	primary := s.newAddress(u.ID, "Rua A", true)
	other := s.newAddress(u.ID, "Rua B", false)
	s.Require().NoError(s.s.Audit().CreateBatch(s.ctx, []models.AuditLog{{UserID: &u.ID, EntityType: "User", EntityID: u.ID.String(), FieldName: "Created", ChangedAt: time.Now()}}))
	boom := errors.New("boom")

	err := s.s.RunInTx(s.ctx, func(tx Store) error {
		renamed := *u
		renamed.FirstName = "Bia"
		s.Require().NoError(tx.Users().Update(s.ctx, &renamed))
		_, err := tx.Addresses().ClearPrimary(s.ctx, u.ID, other.ID)
		s.Require().NoError(err)
		s.Require().NoError(tx.Addresses().Delete(s.ctx, other.ID))
		_, err = tx.Audit().DetachUser(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Require().NoError(tx.Audit().CreateBatch(s.ctx, []models.AuditLog{{EntityType: "User", EntityID: "tx", FieldName: "FirstName", ChangedAt: time.Now()}}))

		// another request records history while this transaction is open
		s.Require().NoError(s.s.Audit().CreateBatch(s.ctx, []models.AuditLog{{EntityType: "User", EntityID: "outside", FieldName: "Phone", ChangedAt: time.Now()}}))
		return boom
	})
	s.ErrorIs(err, boom)

	_, total, err := s.s.Audit().Query(s.ctx, AuditFilter{EntityID: "outside"}, models.Page{Number: 1, Size: 20})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	_, total, err = s.s.Audit().Query(s.ctx, AuditFilter{EntityID: "tx"}, models.Page{Number: 1, Size: 20})
	s.Require().NoError(err)
	s.Zero(total)
	_, total, err = s.s.Audit().Query(s.ctx, AuditFilter{UserID: &u.ID}, models.Page{Number: 1, Size: 20})
	s.Require().NoError(err)
	s.EqualValues(1, total, "detach is undone")

	got, err := s.s.Users().FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Ana", got.FirstName)
	s.Require().Len(got.Addresses, 2)
	a, err := s.s.Addresses().FindByID(s.ctx, primary.ID)
	s.Require().NoError(err)
	s.True(a.IsPrimary)
}

func (s *MemorySuite) newAddressIn(tx Store, userID uuid.UUID) {
	a := &models.Address{ID: uuid.New(), UserID: userID, Street: "Rua A", City: "Recife", State: "PE", ZipCode: "50000-000"}
	s.Require().NoError(tx.Addresses().Create(s.ctx, a))
}

func (s *MemorySuite) TestSinglePrimaryEnforced() {
	u := s.newUser("11144477735", "ana@example.com")
	first := s.newAddress(u.ID, "Rua A", true)

	err := s.s.Addresses().Create(s.ctx, &models.Address{ID: uuid.New(), UserID: u.ID, Street: "Rua B", IsPrimary: true})
	s.ErrorIs(err, ErrConflict)

	ids, err := s.s.Addresses().ClearPrimary(s.ctx, u.ID, uuid.Nil)
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{first.ID}, ids)
	s.newAddress(u.ID, "Rua B", true)
}

func (s *MemorySuite) TestPageByUserPrimaryFirst() {
	u := s.newUser("11144477735", "ana@example.com")
	s.newAddress(u.ID, "Rua A", false)
	p := s.newAddress(u.ID, "Rua B", true)

	items, total, err := s.s.Addresses().PageByUser(s.ctx, u.ID, models.Page{Number: 1, Size: 20})
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Equal(p.ID, items[0].ID)
}

func (s *MemorySuite) TestDeleteUserRequiresDetachedAudit() {
	u := s.newUser("11144477735", "ana@example.com")
	s.newAddress(u.ID, "Rua A", true)
	s.Require().NoError(s.s.Audit().CreateBatch(s.ctx, []models.AuditLog{{UserID: &u.ID, EntityType: "User", EntityID: u.ID.String(), FieldName: "Created", ChangedAt: time.Now()}}))

	s.Error(s.s.Users().Delete(s.ctx, u.ID))

	n, err := s.s.Audit().DetachUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.EqualValues(1, n)
	s.Require().NoError(s.s.Users().Delete(s.ctx, u.ID))

	cnt, err := s.s.Addresses().CountByUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Zero(cnt)
	_, err = s.s.Users().FindByID(s.ctx, u.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *MemorySuite) TestAuditQueryAndRetention() {
	uid := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	logs := []models.AuditLog{
		{UserID: &uid, EntityType: "User", EntityID: "1", FieldName: "LastName", ChangedAt: base},
		{UserID: &uid, EntityType: "User", EntityID: "1", FieldName: "FirstName", ChangedAt: base},
		{UserID: &uid, EntityType: "Address", EntityID: "2", FieldName: "City", ChangedAt: base.Add(time.Hour)},
		{EntityType: "User", EntityID: "3", FieldName: "Deleted", ChangedAt: base.AddDate(0, -2, 0)},
	}
	s.Require().NoError(s.s.Audit().CreateBatch(s.ctx, logs))

	got, total, err := s.s.Audit().Query(s.ctx, AuditFilter{UserID: &uid}, models.Page{Number: 1, Size: 20})
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Equal([]string{"City", "FirstName", "LastName"}, []string{got[0].FieldName, got[1].FieldName, got[2].FieldName})

	_, total, err = s.s.Audit().Query(s.ctx, AuditFilter{EntityType: "user"}, models.Page{Number: 1, Size: 20})
	s.Require().NoError(err)
	s.EqualValues(3, total)

	from, to := base.Add(-time.Minute), base.Add(time.Minute)
	_, total, err = s.s.Audit().Query(s.ctx, AuditFilter{From: &from, To: &to}, models.Page{Number: 1, Size: 20})
	s.Require().NoError(err)
	s.EqualValues(2, total)

	n, err := s.s.Audit().DeleteBefore(s.ctx, base.AddDate(0, -1, 0))
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *MemorySuite) TestListPaginates() {
	for i, cpf := range []string{"11144477735", "52998224725", "39053344705"} {
		s.newUser(cpf, string(rune('a'+i))+"@example.com")
	}
	items, total, err := s.s.Users().List(s.ctx, models.Page{Number: 2, Size: 2})
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Len(items, 1)
}

func (s *MemorySuite) TestAuditColumnWidths() {
	long := "203.0.113.9, 203.0.113.10, 203.0.113.11, 203.0.113.12"
	err := s.s.Audit().CreateBatch(s.ctx, []models.AuditLog{{EntityType: "User", EntityID: "1", FieldName: "Email", ChangedAt: time.Now(), IPAddress: &long}})
	s.ErrorContains(err, "ip_address")

	_, total, err := s.s.Audit().Query(s.ctx, AuditFilter{}, models.Page{Number: 1, Size: 20})
	s.Require().NoError(err)
	s.Zero(total)
}

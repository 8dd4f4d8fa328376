package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Prabhav200511/QuickQRTicket/models"
)

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Event{}, &models.Ticket{}))

	return New(db, slog.New(slog.NewTextHandler(io.Discard, nil))), db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{Name: "u", Email: email, Password: "x", Role: role}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createEvent(t *testing.T, db *gorm.DB, hostID uint, start, end time.Time, capacity int) *models.Event {
	t.Helper()
	event := &models.Event{
		Name:     "Test Event",
		Time:     start,
		EndTime:  end,
		Capacity: capacity,
		HostID:   hostID,
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func issueTicket(t *testing.T, db *gorm.DB, eventID, customerID uint) *models.Ticket {
	t.Helper()
	cred, err := MintCredential(eventID, customerID, time.Now())
	require.NoError(t, err)
	ticket := &models.Ticket{
		EventID:    eventID,
		CustomerID: customerID,
		QRData:     cred.String(),
		QRCode:     "data:image/png;base64,",
	}
	require.NoError(t, db.Create(ticket).Error)
	return ticket
}

func TestPurchaseIssuesTicket(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(2*time.Hour), time.Now().Add(4*time.Hour), 10)

	ticket, err := l.Purchase(context.Background(), event.ID, customer.ID)
	require.NoError(t, err)

	assert.Equal(t, event.ID, ticket.EventID)
	assert.Equal(t, customer.ID, ticket.CustomerID)
	assert.False(t, ticket.Admitted)
	assert.Contains(t, ticket.QRCode, "data:image/png;base64,")

	cred, err := ParseCredential(ticket.QRData)
	require.NoError(t, err)
	assert.Equal(t, event.ID, cred.EventID)
	assert.Equal(t, customer.ID, cred.CustomerID)
	assert.Len(t, cred.Nonce, 8)
}

func TestPurchaseEventNotFound(t *testing.T) {
	l, db := newTestLedger(t)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)

	_, err := l.Purchase(context.Background(), 42, customer.ID)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestPurchaseEventAlreadyStarted(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(-time.Minute), time.Now().Add(2*time.Hour), 10)

	_, err := l.Purchase(context.Background(), event.ID, customer.ID)
	assert.ErrorIs(t, err, ErrEventStarted)
}

func TestPurchaseCapacityLimit(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	a := createUser(t, db, "a@x.com", models.RoleCustomer)
	b := createUser(t, db, "b@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(2*time.Hour), time.Now().Add(4*time.Hour), 1)

	_, err := l.Purchase(context.Background(), event.ID, a.ID)
	require.NoError(t, err)

	_, err = l.Purchase(context.Background(), event.ID, b.ID)
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestPurchaseDuplicateBooking(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(2*time.Hour), time.Now().Add(4*time.Hour), 10)

	_, err := l.Purchase(context.Background(), event.ID, customer.ID)
	require.NoError(t, err)

	_, err = l.Purchase(context.Background(), event.ID, customer.ID)
	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

func TestPurchaseConcurrentNeverOversells(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	event := createEvent(t, db, host.ID, time.Now().Add(2*time.Hour), time.Now().Add(4*time.Hour), 5)

	const buyers = 20
	customers := make([]*models.User, buyers)
	for i := range customers {
		customers[i] = createUser(t, db, string(rune('a'+i))+"@x.com", models.RoleCustomer)
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Purchase(context.Background(), event.ID, customers[i].ID)
		}(i)
	}
	wg.Wait()

	issued := 0
	for _, err := range errs {
		if err == nil {
			issued++
		} else {
			assert.ErrorIs(t, err, ErrEventFull)
		}
	}
	assert.Equal(t, 5, issued)

	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).Where("event_id = ?", event.ID).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestAdmitSuccess(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(10*time.Minute), time.Now().Add(2*time.Hour), 10)
	ticket := issueTicket(t, db, event.ID, customer.ID)

	admission, err := l.Admit(context.Background(), ticket.QRData, host.ID)
	require.NoError(t, err)

	assert.Equal(t, ticket.ID, admission.TicketID)
	assert.Equal(t, event.Name, admission.EventName)
	assert.False(t, admission.EnteredAt.IsZero())

	var stored models.Ticket
	require.NoError(t, db.First(&stored, ticket.ID).Error)
	assert.True(t, stored.Admitted)
}

func TestAdmitMalformedCredential(t *testing.T) {
	l, _ := newTestLedger(t)

	for _, raw := range []string{
		"not-a-ticket-string",
		"TICKET",
		"TICKET|1",
		"ticket|1|2|abc|123",
		"TICKET|x|2|abc|123",
		"TICKET|1|y|abc|123",
	} {
		_, err := l.Admit(context.Background(), raw, 1)
		assert.ErrorIs(t, err, ErrMalformedCredential, "raw=%q", raw)
	}
}

func TestAdmitTicketNotFound(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)

	_, err := l.Admit(context.Background(), "TICKET|5|6|deadbeef|1", host.ID)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestAdmitWrongHost(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	other := createUser(t, db, "other@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(10*time.Minute), time.Now().Add(2*time.Hour), 10)
	ticket := issueTicket(t, db, event.ID, customer.ID)

	_, err := l.Admit(context.Background(), ticket.QRData, other.ID)
	assert.ErrorIs(t, err, ErrNotEventHost)

	// Rejection must not touch the ticket.
	var stored models.Ticket
	require.NoError(t, db.First(&stored, ticket.ID).Error)
	assert.False(t, stored.Admitted)
}

func TestAdmitTwiceFails(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(10*time.Minute), time.Now().Add(2*time.Hour), 10)
	ticket := issueTicket(t, db, event.ID, customer.ID)

	_, err := l.Admit(context.Background(), ticket.QRData, host.ID)
	require.NoError(t, err)

	_, err = l.Admit(context.Background(), ticket.QRData, host.ID)
	assert.ErrorIs(t, err, ErrAlreadyAdmitted)
}

func TestAdmitConcurrentSingleWinner(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(10*time.Minute), time.Now().Add(2*time.Hour), 10)
	ticket := issueTicket(t, db, event.ID, customer.ID)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Admit(context.Background(), ticket.QRData, host.ID)
		}(i)
	}
	wg.Wait()

	successes, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			assert.ErrorIs(t, err, ErrAlreadyAdmitted)
			rejected++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejected)
}

func TestAdmitExpiredClosesCredential(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(-3*time.Hour), time.Now().Add(-time.Hour), 10)
	ticket := issueTicket(t, db, event.ID, customer.ID)

	_, err := l.Admit(context.Background(), ticket.QRData, host.ID)
	assert.ErrorIs(t, err, ErrTicketExpired)

	// The forced flip must have been committed.
	var stored models.Ticket
	require.NoError(t, db.First(&stored, ticket.ID).Error)
	assert.True(t, stored.Admitted)

	// A replay reports already-used, not expired again.
	_, err = l.Admit(context.Background(), ticket.QRData, host.ID)
	assert.ErrorIs(t, err, ErrAlreadyAdmitted)
}

func TestAdmitTooEarly(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	event := createEvent(t, db, host.ID, time.Now().Add(2*time.Hour), time.Now().Add(4*time.Hour), 10)
	ticket := issueTicket(t, db, event.ID, customer.ID)

	_, err := l.Admit(context.Background(), ticket.QRData, host.ID)

	var tooEarly *TooEarlyError
	require.ErrorAs(t, err, &tooEarly)
	assert.Greater(t, tooEarly.WaitMinutes, 0)
	assert.LessOrEqual(t, tooEarly.WaitMinutes, 90)

	var stored models.Ticket
	require.NoError(t, db.First(&stored, ticket.ID).Error)
	assert.False(t, stored.Admitted)
}

func TestAdmitInsideEntryBuffer(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)
	// Starts in 20 minutes: inside the 30-minute buffer, entry is open.
	event := createEvent(t, db, host.ID, time.Now().Add(20*time.Minute), time.Now().Add(2*time.Hour), 10)
	ticket := issueTicket(t, db, event.ID, customer.ID)

	_, err := l.Admit(context.Background(), ticket.QRData, host.ID)
	assert.NoError(t, err)
}

func TestListActiveEventsPurgesExpired(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)

	expired := createEvent(t, db, host.ID, time.Now().Add(-4*time.Hour), time.Now().Add(-2*time.Hour), 10)
	issueTicket(t, db, expired.ID, customer.ID)
	upcoming := createEvent(t, db, host.ID, time.Now().Add(2*time.Hour), time.Now().Add(4*time.Hour), 10)
	issueTicket(t, db, upcoming.ID, customer.ID)

	events, err := l.ListActiveEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, upcoming.ID, events[0].ID)
	assert.Equal(t, int64(9), events[0].AvailableTickets)

	// The expired event's tickets must be gone too.
	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).Where("event_id = ?", expired.ID).Count(&count).Error)
	assert.Zero(t, count)

	// Purge is idempotent: a second listing yields the same result.
	again, err := l.ListActiveEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, events, again)
}

func TestListActiveEventsOrderedByStart(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)

	later := createEvent(t, db, host.ID, time.Now().Add(5*time.Hour), time.Now().Add(6*time.Hour), 10)
	sooner := createEvent(t, db, host.ID, time.Now().Add(1*time.Hour), time.Now().Add(2*time.Hour), 10)

	events, err := l.ListActiveEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, sooner.ID, events[0].ID)
	assert.Equal(t, later.ID, events[1].ID)
}

func TestListHostEvents(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	other := createUser(t, db, "other@x.com", models.RoleHost)

	mine := createEvent(t, db, host.ID, time.Now().Add(2*time.Hour), time.Now().Add(4*time.Hour), 10)
	createEvent(t, db, other.ID, time.Now().Add(2*time.Hour), time.Now().Add(4*time.Hour), 10)

	events, err := l.ListHostEvents(context.Background(), host.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, mine.ID, events[0].ID)
}

func TestListCustomerTicketsFutureOnly(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	customer := createUser(t, db, "cust@x.com", models.RoleCustomer)

	past := createEvent(t, db, host.ID, time.Now().Add(-2*time.Hour), time.Now().Add(2*time.Hour), 10)
	issueTicket(t, db, past.ID, customer.ID)
	future := createEvent(t, db, host.ID, time.Now().Add(2*time.Hour), time.Now().Add(4*time.Hour), 10)
	future2 := createEvent(t, db, host.ID, time.Now().Add(1*time.Hour), time.Now().Add(3*time.Hour), 10)
	issueTicket(t, db, future.ID, customer.ID)
	issueTicket(t, db, future2.ID, customer.ID)

	tickets, err := l.ListCustomerTickets(context.Background(), customer.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	// Soonest event first.
	assert.True(t, tickets[0].EventTime.Before(tickets[1].EventTime))
}

func TestPurgeExpiredIdempotent(t *testing.T) {
	l, db := newTestLedger(t)
	host := createUser(t, db, "host@x.com", models.RoleHost)
	createEvent(t, db, host.ID, time.Now().Add(-4*time.Hour), time.Now().Add(-2*time.Hour), 10)

	require.NoError(t, l.PurgeExpired(context.Background()))
	require.NoError(t, l.PurgeExpired(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.Event{}).Count(&count).Error)
	assert.Zero(t, count)
}

package ginserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"petadopt/internal/app/dto"
	chatservice "petadopt/internal/app/services/chat"
	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
	"petadopt/internal/infra/config"
	ginserver "petadopt/internal/infra/http/gin"
	"petadopt/internal/infra/obs"
	"petadopt/internal/infra/storage/memory"
)

// harness runs the full router against memory-backed repositories so tests
// exercise the real wiring from route to storage.
type harness struct {
	handler  http.Handler
	users    *domainuser.User
	shelter  *domainuser.User
	listing  *domainlistings.Listing
	userRepo *memory.UserRepository
}

func newHarness() *harness {
	ctx := context.Background()
	h := &harness{userRepo: memory.NewUserRepository()}

	listings := memory.NewListingRepository()
	svc := &chatservice.Service{
		UoWFactory: memory.Factory{
			UsersRepo:         h.userRepo,
			ListingsRepo:      listings,
			ConversationsRepo: memory.NewConversationRepository(),
			MessagesRepo:      memory.NewMessageRepository(),
		},
		Outbox: memory.NewOutbox(),
	}

	adopter, err := domainuser.NewUser(domainuser.CreateParams{ID: "u-jan", Email: "jan@akcja.pl"})
	Expect(err).NotTo(HaveOccurred())
	shelter, err := domainuser.NewUser(domainuser.CreateParams{ID: "u-azyl", Email: "azyl@akcja.pl", IsShelter: true})
	Expect(err).NotTo(HaveOccurred())
	h.users, h.shelter = adopter, shelter
	Expect(h.userRepo.Save(ctx, adopter)).To(Succeed())
	Expect(h.userRepo.Save(ctx, shelter)).To(Succeed())

	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:      "l-azor",
		Owner:   shelter.ID,
		Title:   "Azor szuka domu",
		Species: "dog",
		PetName: "Azor",
	})
	Expect(err).NotTo(HaveOccurred())
	h.listing = listing
	Expect(listings.Save(ctx, listing)).To(Succeed())

	srv := ginserver.NewServer(
		config.Config{Env: "test", HTTPAddr: ":0"},
		obs.Middleware{},
		obs.HealthHandlers{},
		ginserver.Handlers{Chat: ginserver.ChatHandler{Chat: svc}},
	)
	h.handler = srv.Handler
	return h
}

func (h *harness) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) createConversation(user1, user2 string) string {
	rec := h.do(http.MethodPost, "/conversations", dto.CreateConversationRequest{
		User1Email: user1,
		User2Email: user2,
		ListingID:  string(h.listing.ID),
	})
	Expect(rec.Code).To(Equal(http.StatusOK))
	var resp dto.ConversationCreatedResponse
	Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
	Expect(resp.Success).To(BeTrue())
	Expect(resp.ConversationID).NotTo(BeEmpty())
	return resp.ConversationID
}

func decodeFailure(rec *httptest.ResponseRecorder) dto.ErrorResponse {
	var resp dto.ErrorResponse
	Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
	Expect(resp.Success).To(BeFalse())
	return resp
}

var _ = Describe("ChatHandler", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness()
	})

	Describe("POST /conversations", func() {
		It("creates and echoes the conversation id", func() {
			h.createConversation(h.users.Email, h.shelter.Email)
		})

		It("returns the same id for a repeated pair", func() {
			first := h.createConversation(h.users.Email, h.shelter.Email)
			second := h.createConversation(h.shelter.Email, h.users.Email)
			Expect(second).To(Equal(first))
		})

		It("rejects a missing email with 400", func() {
			rec := h.do(http.MethodPost, "/conversations", dto.CreateConversationRequest{
				User1Email: h.users.Email,
				ListingID:  string(h.listing.ID),
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			decodeFailure(rec)
		})

		It("rejects a malformed body with 400", func() {
			req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBufferString("{"))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.handler.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeFailure(rec).Message).To(Equal("invalid payload"))
		})

		It("returns 404 for an unknown participant", func() {
			rec := h.do(http.MethodPost, "/conversations", dto.CreateConversationRequest{
				User1Email: h.users.Email,
				User2Email: "nikt@akcja.pl",
				ListingID:  string(h.listing.ID),
			})
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			decodeFailure(rec)
		})
	})

	Describe("POST /messages", func() {
		It("appends a message and echoes the conversation id", func() {
			id := h.createConversation(h.users.Email, h.shelter.Email)

			rec := h.do(http.MethodPost, "/messages", dto.SendMessageRequest{
				ConversationID: id,
				SenderEmail:    h.users.Email,
				Text:           "Czy Azor lubi dzieci?",
			})
			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp dto.ConversationCreatedResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.ConversationID).To(Equal(id))
		})

		It("returns 404 for an unknown conversation", func() {
			rec := h.do(http.MethodPost, "/messages", dto.SendMessageRequest{
				ConversationID: "c-missing",
				SenderEmail:    h.users.Email,
				Text:           "halo",
			})
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			decodeFailure(rec)
		})

		It("rejects empty text with 400", func() {
			id := h.createConversation(h.users.Email, h.shelter.Email)
			rec := h.do(http.MethodPost, "/messages", dto.SendMessageRequest{
				ConversationID: id,
				SenderEmail:    h.users.Email,
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			decodeFailure(rec)
		})
	})

	Describe("GET /messages", func() {
		It("returns the log in send order", func() {
			id := h.createConversation(h.users.Email, h.shelter.Email)
			for _, text := range []string{"pierwsza", "druga"} {
				rec := h.do(http.MethodPost, "/messages", dto.SendMessageRequest{
					ConversationID: id,
					SenderEmail:    h.users.Email,
					Text:           text,
				})
				Expect(rec.Code).To(Equal(http.StatusOK))
			}

			rec := h.do(http.MethodGet, "/messages?conversation_id="+id, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp dto.MessagesResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Success).To(BeTrue())
			Expect(resp.Messages).To(HaveLen(2))
			Expect(resp.Messages[0].Text).To(Equal("pierwsza"))
			Expect(resp.Messages[1].Text).To(Equal("druga"))
			Expect(resp.Messages[0].SenderEmail).To(Equal(h.users.Email))
		})

		It("returns an empty list for an unknown conversation", func() {
			rec := h.do(http.MethodGet, "/messages?conversation_id=c-missing", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp dto.MessagesResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Success).To(BeTrue())
			Expect(resp.Messages).To(BeEmpty())
		})

		It("requires conversation_id", func() {
			rec := h.do(http.MethodGet, "/messages", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeFailure(rec).Message).To(Equal("conversation_id is required"))
		})
	})

	Describe("GET /conversations", func() {
		It("lists summaries for a participant", func() {
			id := h.createConversation(h.users.Email, h.shelter.Email)
			rec := h.do(http.MethodPost, "/messages", dto.SendMessageRequest{
				ConversationID: id,
				SenderEmail:    h.users.Email,
				Text:           "dzien dobry",
			})
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = h.do(http.MethodGet, "/conversations?user_email="+h.users.Email, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp dto.ConversationsResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Success).To(BeTrue())
			Expect(resp.Conversations).To(HaveLen(1))

			summary := resp.Conversations[0]
			Expect(summary.ConversationID).To(Equal(id))
			Expect(summary.With).To(Equal(h.shelter.Email))
			Expect(summary.ListingID).To(Equal(string(h.listing.ID)))
			Expect(summary.ListingTitle).To(Equal(h.listing.Title))
			Expect(summary.LastMessage).To(Equal("dzien dobry"))
			Expect(summary.LastMessageAt).NotTo(BeNil())
		})

		It("requires user_email", func() {
			rec := h.do(http.MethodGet, "/conversations", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeFailure(rec).Message).To(Equal("user_email is required"))
		})

		It("returns 404 for an unknown user", func() {
			rec := h.do(http.MethodGet, "/conversations?user_email=nikt@akcja.pl", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			decodeFailure(rec)
		})
	})

	Describe("health endpoints", func() {
		It("serves liveness and readiness", func() {
			Expect(h.do(http.MethodGet, "/livez", nil).Code).To(Equal(http.StatusOK))
			Expect(h.do(http.MethodGet, "/readyz", nil).Code).To(Equal(http.StatusOK))
		})
	})
})

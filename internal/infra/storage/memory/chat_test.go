package memory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	domainchat "petadopt/internal/domain/chat"
	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
	"petadopt/internal/infra/storage/memory"
)

func mustConversation(id string, listing domainlistings.ListingID, a, b domainuser.ID) *domainchat.Conversation {
	conversation, err := domainchat.NewConversation(domainchat.CreateConversationParams{
		ID:           domainchat.ConversationID(id),
		ListingID:    listing,
		ParticipantA: a,
		ParticipantB: b,
	})
	Expect(err).NotTo(HaveOccurred())
	return conversation
}

var _ = Describe("ConversationRepository", func() {
	var (
		repo *memory.ConversationRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		repo = memory.NewConversationRepository()
		ctx = context.Background()
	})

	It("stores and retrieves a conversation by id", func() {
		conversation := mustConversation("c-1", "l-1", "u-a", "u-b")
		Expect(repo.Insert(ctx, conversation)).To(Succeed())

		got, err := repo.ByID(ctx, "c-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ParticipantA).To(Equal(domainuser.ID("u-a")))
		Expect(got.ParticipantB).To(Equal(domainuser.ID("u-b")))
	})

	It("rejects a second conversation for the same pair and listing", func() {
		Expect(repo.Insert(ctx, mustConversation("c-1", "l-1", "u-a", "u-b"))).To(Succeed())

		err := repo.Insert(ctx, mustConversation("c-2", "l-1", "u-a", "u-b"))
		Expect(err).To(MatchError(domainchat.ErrConversationExists))
	})

	It("treats the pair as unordered", func() {
		Expect(repo.Insert(ctx, mustConversation("c-1", "l-1", "u-a", "u-b"))).To(Succeed())

		err := repo.Insert(ctx, mustConversation("c-2", "l-1", "u-b", "u-a"))
		Expect(err).To(MatchError(domainchat.ErrConversationExists))
	})

	It("allows the same pair on a different listing", func() {
		Expect(repo.Insert(ctx, mustConversation("c-1", "l-1", "u-a", "u-b"))).To(Succeed())
		Expect(repo.Insert(ctx, mustConversation("c-2", "l-2", "u-a", "u-b"))).To(Succeed())
	})

	It("finds the pair in either order", func() {
		Expect(repo.Insert(ctx, mustConversation("c-1", "l-1", "u-a", "u-b"))).To(Succeed())

		got, err := repo.FindByPair(ctx, "l-1", "u-b", "u-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(domainchat.ConversationID("c-1")))
	})

	It("reports absence with the not-found sentinel", func() {
		_, err := repo.ByID(ctx, "c-missing")
		Expect(err).To(MatchError(domainchat.ErrConversationNotFound))

		_, err = repo.FindByPair(ctx, "l-1", "u-a", "u-b")
		Expect(err).To(MatchError(domainchat.ErrConversationNotFound))
	})

	Describe("ForUser", func() {
		BeforeEach(func() {
			Expect(repo.Insert(ctx, mustConversation("c-1", "l-1", "u-a", "u-b"))).To(Succeed())
			Expect(repo.Insert(ctx, mustConversation("c-2", "l-2", "u-b", "u-c"))).To(Succeed())
			Expect(repo.Insert(ctx, mustConversation("c-3", "l-1", "u-c", "u-b"))).To(Succeed())
		})

		It("returns conversations the user participates in", func() {
			matches, err := repo.ForUser(ctx, "u-a", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal(domainchat.ConversationID("c-1")))
		})

		It("includes conversations about the user's listings", func() {
			matches, err := repo.ForUser(ctx, "u-owner", []domainlistings.ListingID{"l-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].ID).To(Equal(domainchat.ConversationID("c-1")))
			Expect(matches[1].ID).To(Equal(domainchat.ConversationID("c-3")))
		})

		It("does not duplicate rows for participants who own the listing", func() {
			matches, err := repo.ForUser(ctx, "u-b", []domainlistings.ListingID{"l-1", "l-2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(3))
		})

		It("preserves insertion order", func() {
			matches, err := repo.ForUser(ctx, "u-b", nil)
			Expect(err).NotTo(HaveOccurred())
			ids := make([]domainchat.ConversationID, 0, len(matches))
			for _, m := range matches {
				ids = append(ids, m.ID)
			}
			Expect(ids).To(Equal([]domainchat.ConversationID{"c-1", "c-2", "c-3"}))
		})
	})

	It("returns copies that do not alias the stored row", func() {
		Expect(repo.Insert(ctx, mustConversation("c-1", "l-1", "u-a", "u-b"))).To(Succeed())

		got, err := repo.ByID(ctx, "c-1")
		Expect(err).NotTo(HaveOccurred())
		got.ParticipantA = "u-mutated"

		again, err := repo.ByID(ctx, "c-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.ParticipantA).To(Equal(domainuser.ID("u-a")))
	})
})

var _ = Describe("MessageRepository", func() {
	var (
		repo *memory.MessageRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		repo = memory.NewMessageRepository()
		ctx = context.Background()
	})

	appendMessage := func(id, convo, text string) *domainchat.Message {
		message := &domainchat.Message{
			ID:             domainchat.MessageID(id),
			ConversationID: domainchat.ConversationID(convo),
			Sender:         "u-a",
			Text:           text,
		}
		Expect(repo.Append(ctx, message)).To(Succeed())
		return message
	}

	It("stamps the send time on append", func() {
		before := time.Now().UTC()
		message := appendMessage("m-1", "c-1", "hej")
		Expect(message.SentAt).NotTo(BeZero())
		Expect(message.SentAt.Before(before)).To(BeFalse())
	})

	It("returns the log in append order", func() {
		appendMessage("m-1", "c-1", "pierwsza")
		appendMessage("m-2", "c-1", "druga")
		appendMessage("m-3", "c-2", "inna rozmowa")

		log, err := repo.ByConversation(ctx, "c-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(log).To(HaveLen(2))
		Expect(log[0].Text).To(Equal("pierwsza"))
		Expect(log[1].Text).To(Equal("druga"))
	})

	It("clamps send times so the log never goes backwards", func() {
		base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
		clock := base
		memory.SetClock(repo, func() time.Time { return clock })

		appendMessage("m-1", "c-1", "pierwsza")
		clock = base.Add(-time.Minute)
		second := appendMessage("m-2", "c-1", "druga")

		Expect(second.SentAt).To(Equal(base))
		log, err := repo.ByConversation(ctx, "c-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(log[1].SentAt.Before(log[0].SentAt)).To(BeFalse())
	})

	It("returns the most recent message", func() {
		appendMessage("m-1", "c-1", "pierwsza")
		appendMessage("m-2", "c-1", "druga")

		last, err := repo.Last(ctx, "c-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(last.Text).To(Equal("druga"))
	})

	It("reports an empty conversation", func() {
		_, err := repo.Last(ctx, "c-empty")
		Expect(err).To(MatchError(domainchat.ErrNoMessages))

		log, err := repo.ByConversation(ctx, "c-empty")
		Expect(err).NotTo(HaveOccurred())
		Expect(log).To(BeEmpty())
	})
})

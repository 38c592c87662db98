package history

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveEntry", func() {
		var (
			entry *invoice.Entry
			err   error
		)

		BeforeEach(func() {
			entry = &invoice.Entry{
				ID:      "test-id",
				OwnerID: "user-1",
				Invoice: invoice.Invoice{
					VendorName: "Telia",
					Category:   "Mobil",
					Currency:   "SEK",
					DueDate:    "2024-03-15",
				},
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveEntry(entry)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the entry to the database", func() {
				saved, getErr := db.GetEntry("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("test-id"))
				Expect(saved.VendorName).To(Equal("Telia"))
			})
		})
	})

	Describe("GetEntry", func() {
		var (
			entryID string
			entry   *invoice.Entry
			err     error
		)

		JustBeforeEach(func() {
			entry, err = db.GetEntry(entryID)
		})

		When("the entry exists", func() {
			BeforeEach(func() {
				entryID = "test-id"
				Expect(db.SaveEntry(&invoice.Entry{
					ID:      "test-id",
					OwnerID: "user-1",
					Invoice: invoice.Invoice{VendorName: "Telia", Category: "Mobil"},
				})).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the stored fields", func() {
				Expect(entry.OwnerID).To(Equal("user-1"))
				Expect(entry.Category).To(Equal("Mobil"))
			})
		})

		When("the entry does not exist", func() {
			BeforeEach(func() {
				entryID = "nonexistent"
			})

			It("returns a not-found error", func() {
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("ListEntriesByOwner", func() {
		var (
			entries []*invoice.Entry
			err     error
		)

		JustBeforeEach(func() {
			entries, err = db.ListEntriesByOwner("user-1")
		})

		When("entries from several owners exist", func() {
			BeforeEach(func() {
				base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
				Expect(db.SaveEntry(&invoice.Entry{
					ID: "old", OwnerID: "user-1", CreatedAt: base,
				})).NotTo(HaveOccurred())
				Expect(db.SaveEntry(&invoice.Entry{
					ID: "new", OwnerID: "user-1", CreatedAt: base.Add(time.Hour),
				})).NotTo(HaveOccurred())
				Expect(db.SaveEntry(&invoice.Entry{
					ID: "other", OwnerID: "user-2", CreatedAt: base,
				})).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("only returns the owner's entries", func() {
				Expect(entries).To(HaveLen(2))
			})

			It("sorts newest first", func() {
				Expect(entries[0].ID).To(Equal("new"))
				Expect(entries[1].ID).To(Equal("old"))
			})
		})

		When("no entries exist", func() {
			It("should return an empty list", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(BeEmpty())
			})
		})
	})

	Describe("DeleteEntry", func() {
		var (
			entryID string
			err     error
		)

		JustBeforeEach(func() {
			err = db.DeleteEntry(entryID)
		})

		When("the entry exists", func() {
			BeforeEach(func() {
				entryID = "test-id"
				Expect(db.SaveEntry(&invoice.Entry{ID: "test-id", OwnerID: "user-1"})).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the entry from the database", func() {
				_, getErr := db.GetEntry("test-id")
				Expect(getErr).To(HaveOccurred())
			})
		})

		When("the entry does not exist", func() {
			BeforeEach(func() {
				entryID = "nonexistent"
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})
	})

	Describe("Close", func() {
		It("should not return an error", func() {
			err := db.Close()
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

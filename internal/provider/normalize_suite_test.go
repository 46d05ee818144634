package provider_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/docwizard/engine/internal/provider"
)

func TestNormalizeSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "provider response normalization suite")
}

var _ = Describe("Normalize", func() {
	When("the provider returns a plain string", func() {
		It("passes the content through unchanged", func() {
			out, err := provider.Normalize("abcd")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("abcd"))
		})
	})

	When("the provider returns an array of string chunks", func() {
		It("concatenates them in array order", func() {
			out, err := provider.Normalize([]any{"ab", "cd"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("abcd"))
		})
	})

	When("the provider returns an integer-keyed object", func() {
		It("concatenates values in numeric-key order regardless of map iteration order", func() {
			out, err := provider.Normalize(map[string]any{"1": "de", "0": "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("abcde"))
		})
	})

	When("all three shapes encode the same content", func() {
		It("produces identical normalized output", func() {
			str, err := provider.Normalize("abcd")
			Expect(err).NotTo(HaveOccurred())
			arr, err := provider.Normalize([]any{"ab", "cd"})
			Expect(err).NotTo(HaveOccurred())
			obj, err := provider.Normalize(map[string]any{"0": "abc", "1": "de"})
			Expect(err).NotTo(HaveOccurred())

			Expect(str).To(Equal(arr))
			Expect(arr).To(Equal(obj))
		})
	})

	When("the normalized result is empty", func() {
		It("returns ErrEmptyResponse", func() {
			_, err := provider.Normalize("")
			Expect(err).To(MatchError(provider.ErrEmptyResponse))
		})
	})

	When("the raw value isn't one of the three recognized shapes", func() {
		It("returns an error rather than guessing", func() {
			_, err := provider.Normalize(3.14)
			Expect(err).To(HaveOccurred())
		})
	})
})

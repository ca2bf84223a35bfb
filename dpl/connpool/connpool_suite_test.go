package connpool_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestConnpool(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Connpool Suite")
}

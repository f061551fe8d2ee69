package compose

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Compose", func() {
	ginkgo.Describe("ParseDependsOnLabel", func() {
		ginkgo.It("returns nil for an empty label", func() {
			gomega.Expect(ParseDependsOnLabel("")).To(gomega.BeNil())
			gomega.Expect(ParseDependsOnLabel("  ")).To(gomega.BeNil())
		})

		ginkgo.It("strips conditions and required flags", func() {
			result := ParseDependsOnLabel("postgres:service_started:required, redis:service_healthy")
			gomega.Expect(result).To(gomega.Equal([]string{"postgres", "redis"}))
		})

		ginkgo.It("ignores empty entries", func() {
			gomega.Expect(ParseDependsOnLabel("postgres,,redis,")).To(gomega.Equal([]string{"postgres", "redis"}))
		})
	})

	ginkgo.Describe("ExpandDependency", func() {
		ginkgo.It("qualifies the service with its project", func() {
			gomega.Expect(ExpandDependency("app", "db")).To(gomega.Equal([]string{
				"app-db-1", "app_db_1", "app-db", "db",
			}))
		})

		ginkgo.It("returns the bare service without a project", func() {
			gomega.Expect(ExpandDependency("", "db")).To(gomega.Equal([]string{"db"}))
		})
	})

	ginkgo.Describe("Dependencies", func() {
		ginkgo.It("expands every service of the label", func() {
			labels := map[string]string{
				ComposeProjectLabel:   "app",
				ComposeServiceLabel:   "web",
				ComposeDependsOnLabel: "db:service_healthy:true,cache:service_started",
			}
			gomega.Expect(Dependencies(labels)).To(gomega.Equal([]string{
				"app-db-1", "app_db_1", "app-db", "db",
				"app-cache-1", "app_cache_1", "app-cache", "cache",
			}))
		})

		ginkgo.It("returns nil without a depends_on label", func() {
			gomega.Expect(Dependencies(map[string]string{ComposeServiceLabel: "web"})).To(gomega.BeNil())
			gomega.Expect(Dependencies(nil)).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("GetServiceName", func() {
		ginkgo.It("returns the service label", func() {
			gomega.Expect(GetServiceName(map[string]string{ComposeServiceLabel: "web"})).To(gomega.Equal("web"))
			gomega.Expect(GetServiceName(nil)).To(gomega.BeEmpty())
		})
	})
})

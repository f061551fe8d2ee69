package sorter_test

import (
	"errors"
	"strconv"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/dockupdate/pkg/sorter"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

func container(name string, deps ...string) types.ContainerInfo {
	return types.ContainerInfo{
		ID:           types.ContainerID("id-" + name),
		Name:         name,
		Dependencies: deps,
	}
}

func namesOf(containers []types.ContainerInfo) []string {
	result := make([]string, 0, len(containers))
	for _, c := range containers {
		result = append(result, c.Name)
	}

	return result
}

var _ = ginkgo.Describe("the sorter", func() {
	ginkgo.Describe("StopOrder", func() {
		ginkgo.It("should place dependencies before dependents", func() {
			order, cycles := sorter.StopOrder([]types.ContainerInfo{
				container("C", "B"),
				container("B", "A"),
				container("A"),
			})
			gomega.Expect(cycles).To(gomega.BeEmpty())
			gomega.Expect(namesOf(order)).To(gomega.Equal([]string{"A", "B", "C"}))
		})

		ginkgo.It("should keep input order for independent containers", func() {
			order, _ := sorter.StopOrder([]types.ContainerInfo{
				container("web"),
				container("worker"),
				container("db"),
			})
			gomega.Expect(namesOf(order)).To(gomega.Equal([]string{"web", "worker", "db"}))
		})

		ginkgo.It("should ignore dependencies outside the group", func() {
			order, cycles := sorter.StopOrder([]types.ContainerInfo{
				container("web", "app-db-1", "app_db_1", "db"),
				container("cache"),
			})
			gomega.Expect(cycles).To(gomega.BeEmpty())
			gomega.Expect(namesOf(order)).To(gomega.Equal([]string{"web", "cache"}))
		})

		ginkgo.It("should match dependencies against names with a leading slash", func() {
			order, _ := sorter.StopOrder([]types.ContainerInfo{
				container("/web", "db"),
				container("/db"),
			})
			gomega.Expect(namesOf(order)).To(gomega.Equal([]string{"/db", "/web"}))
		})

		ginkgo.It("should break a cycle and still order every container", func() {
			order, cycles := sorter.StopOrder([]types.ContainerInfo{
				container("A", "C"),
				container("B", "A"),
				container("C", "B"),
			})
			gomega.Expect(order).To(gomega.HaveLen(3))
			gomega.Expect(namesOf(order)).To(gomega.Equal([]string{"B", "C", "A"}))
			gomega.Expect(cycles).To(gomega.HaveLen(1))
			gomega.Expect(cycles[0].CyclePath).To(gomega.Equal([]string{"A", "C", "B", "A"}))
			gomega.Expect(errors.Is(cycles[0], sorter.ErrCircularReference)).To(gomega.BeTrue())
		})

		ginkgo.It("should treat a self-dependency as a cycle", func() {
			order, cycles := sorter.StopOrder([]types.ContainerInfo{container("A", "A")})
			gomega.Expect(namesOf(order)).To(gomega.Equal([]string{"A"}))
			gomega.Expect(cycles).To(gomega.HaveLen(1))
			gomega.Expect(cycles[0].Error()).To(gomega.Equal("circular reference detected: A -> A"))
		})

		ginkgo.It("should visit a shared dependency once", func() {
			order, _ := sorter.StopOrder([]types.ContainerInfo{
				container("web", "db", "cache"),
				container("worker", "db"),
				container("cache", "db"),
				container("db"),
			})
			gomega.Expect(namesOf(order)).To(gomega.Equal([]string{"db", "cache", "web", "worker"}))
		})

		ginkgo.It("should keep duplicate names", func() {
			order, _ := sorter.StopOrder([]types.ContainerInfo{container("x"), container("x")})
			gomega.Expect(order).To(gomega.HaveLen(2))
		})

		ginkgo.It("should handle a long chain without recursion", func() {
			containers := make([]types.ContainerInfo, 0, 10000)
			for i := range 10000 {
				name := string(rune('a'+i%26)) + "-" + strconv.Itoa(i)
				if i == 0 {
					containers = append(containers, container(name))

					continue
				}

				containers = append(containers, container(name, containers[i-1].Name))
			}

			order, cycles := sorter.StopOrder(containers)
			gomega.Expect(cycles).To(gomega.BeEmpty())
			gomega.Expect(order[0].Name).To(gomega.Equal(containers[0].Name))
			gomega.Expect(order[len(order)-1].Name).To(gomega.Equal(containers[len(containers)-1].Name))
		})
	})

	ginkgo.Describe("StartOrder", func() {
		ginkgo.It("should reverse the stop order without touching it", func() {
			stop := []types.ContainerInfo{container("A"), container("B"), container("C")}
			gomega.Expect(namesOf(sorter.StartOrder(stop))).To(gomega.Equal([]string{"C", "B", "A"}))
			gomega.Expect(namesOf(stop)).To(gomega.Equal([]string{"A", "B", "C"}))
		})
	})
})

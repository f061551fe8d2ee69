package notifications

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/spf13/cobra"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/dockupdate/pkg/session"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// recordingRouter captures sent messages.
type recordingRouter struct {
	mu       sync.Mutex
	messages []string
	titles   []string
	err      error
}

func (r *recordingRouter) Send(message string, params *shoutrrrTypes.Params) []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, message)

	title, _ := params.Title()
	r.titles = append(r.titles, title)

	return []error{r.err}
}

func (r *recordingRouter) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.messages...)
}

func mixedReport(dryRun bool) types.Report {
	progress := session.NewProgress(dryRun)

	for _, image := range []types.CheckImage{
		{ID: "sha256:a", Name: "nginx", OriginalTag: "1.25"},
		{ID: "sha256:b", Name: "redis", OriginalTag: "7.0"},
		{ID: "sha256:c", Name: "postgres", OriginalTag: "16"},
		{ID: "sha256:d", Name: "alpine", OriginalTag: "3"},
	} {
		progress.AddScanned(image)
	}

	progress.MarkStale("sha256:a", "1.26")
	progress.MarkUpdated("sha256:a")
	progress.MarkStale("sha256:b", "7.2")
	progress.MarkFailed("sha256:c", errors.New("registry unreachable"))
	progress.MarkFresh("sha256:d")
	progress.AddContainer(types.ContainerInfo{ID: "c1", Name: "web"}, "nginx:1.26", "n1",
		session.ContainerUpdatedState, nil)
	progress.AddContainer(types.ContainerInfo{ID: "c2", Name: "proxy"}, "nginx:1.26", "",
		session.ContainerFailedState, errors.New("port in use"))

	return progress.Report()
}

func freshReport() types.Report {
	progress := session.NewProgress(false)
	progress.AddScanned(types.CheckImage{ID: "sha256:d", Name: "alpine", OriginalTag: "3"})
	progress.MarkFresh("sha256:d")

	return progress.Report()
}

var _ = ginkgo.Describe("the shoutrrr notifier", func() {
	var (
		router   *recordingRouter
		notifier *shoutrrrNotifier
	)

	build := func(tplString string) {
		tpl, err := getShoutrrrTemplate(tplString)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		notifier = newShoutrrrNotifier(
			[]string{"logger://"},
			router,
			tpl,
			StaticData{Title: GetTitle("host", ""), Host: "host"},
			0,
		)
	}

	ginkgo.BeforeEach(func() {
		router = &recordingRouter{}
	})

	ginkgo.When("using the default template", func() {
		ginkgo.It("should summarize updates, stale images and failures", func() {
			build("")
			notifier.SendNotification(mixedReport(false))
			notifier.Close()

			gomega.Expect(router.sent()).To(gomega.Equal([]string{
				"4 Scanned, 1 Updated, 1 Stale, 1 Failed\n" +
					"- nginx: 1.25 updated to 1.26\n" +
					"- redis: 7.0 can be updated to 7.2\n" +
					"- postgres:16: failed: registry unreachable\n" +
					"- container proxy (nginx:1.26): failed: port in use",
			}))
			gomega.Expect(router.titles).To(gomega.Equal([]string{"dockupdate updates on host"}))
		})

		ginkgo.It("should flag dry runs", func() {
			build("")
			notifier.SendNotification(mixedReport(true))
			notifier.Close()

			gomega.Expect(router.sent()).To(gomega.HaveLen(1))
			gomega.Expect(router.sent()[0]).To(gomega.HavePrefix("[dry run] 4 Scanned"))
		})

		ginkgo.It("should send nothing when every image is fresh", func() {
			build("")
			notifier.SendNotification(freshReport())
			notifier.Close()

			gomega.Expect(router.sent()).To(gomega.BeEmpty())
		})
	})

	ginkgo.When("using the summary template", func() {
		ginkgo.It("should list every scanned image", func() {
			build("summary.v1")
			notifier.SendNotification(mixedReport(false))
			notifier.Close()

			gomega.Expect(router.sent()).To(gomega.Equal([]string{
				"alpine:3: Fresh\n" +
					"nginx:1.25: Updated\n" +
					"postgres:16: Failed Error: registry unreachable\n" +
					"redis:7.0: Stale",
			}))
		})
	})

	ginkgo.When("using the JSON template", func() {
		ginkgo.It("should render the report as JSON", func() {
			build("json.v1")
			notifier.SendNotification(mixedReport(false))
			notifier.Close()

			gomega.Expect(router.sent()).To(gomega.HaveLen(1))

			var decoded map[string]any
			gomega.Expect(json.Unmarshal([]byte(router.sent()[0]), &decoded)).To(gomega.Succeed())
			gomega.Expect(decoded).To(gomega.HaveKeyWithValue("host", "host"))

			report, ok := decoded["report"].(map[string]any)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(report["updated"]).To(gomega.HaveLen(1))
			gomega.Expect(report["containers"]).To(gomega.HaveLen(2))
		})
	})

	ginkgo.When("a service fails", func() {
		ginkgo.It("should keep sending", func() {
			router.err = errors.New("service down")
			build("")
			notifier.SendNotification(mixedReport(false))
			notifier.SendNotification(mixedReport(false))
			notifier.Close()

			gomega.Expect(router.sent()).To(gomega.HaveLen(2))
		})
	})

	ginkgo.It("should report service names from URL schemes", func() {
		build("")
		defer notifier.Close()

		gomega.Expect(notifier.GetNames()).To(gomega.Equal([]string{"logger"}))
	})
})

var _ = ginkgo.Describe("notification templates", func() {
	ginkgo.It("should reject invalid templates", func() {
		_, err := getShoutrrrTemplate("{{ .Report")
		gomega.Expect(err).To(gomega.MatchError(errParseTemplateFailed))
	})

	ginkgo.It("should accept custom templates using the template functions", func() {
		tpl, err := getShoutrrrTemplate(`{{ .Title | ToUpper }}`)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		notifier := &shoutrrrNotifier{template: tpl}
		msg, err := notifier.buildMessage(Data{StaticData: StaticData{Title: "runs"}})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(msg).To(gomega.Equal("RUNS"))
	})
})

var _ = ginkgo.Describe("GetScheme", func() {
	ginkgo.It("should return the scheme of a URL", func() {
		gomega.Expect(GetScheme("discord://token@id")).To(gomega.Equal("discord"))
	})

	ginkgo.It("should flag URLs without a scheme", func() {
		gomega.Expect(GetScheme("no-scheme")).To(gomega.Equal("invalid"))
		gomega.Expect(GetScheme(":foo")).To(gomega.Equal("invalid"))
	})
})

var _ = ginkgo.Describe("GetTitle", func() {
	ginkgo.It("should include the tag and hostname", func() {
		gomega.Expect(GetTitle("box", "prod")).To(gomega.Equal("[prod] dockupdate updates on box"))
		gomega.Expect(GetTitle("", "")).To(gomega.Equal("dockupdate updates"))
	})
})

var _ = ginkgo.Describe("NewNotifier", func() {
	newCommand := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{}
		flags := cmd.PersistentFlags()
		flags.StringArray("notification-url", nil, "")
		flags.String("notification-template", "", "")
		flags.String("notifications-hostname", "", "")
		flags.String("notification-title-tag", "", "")
		flags.Bool("notification-skip-title", false, "")
		flags.Bool("notification-log-stdout", false, "")
		flags.Int("notifications-delay", 0, "")
		gomega.Expect(flags.Parse(args)).To(gomega.Succeed())

		return cmd
	}

	ginkgo.It("should return no notifier without URLs", func() {
		notifier, err := NewNotifier(newCommand())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(notifier).To(gomega.BeNil())
	})

	ginkgo.It("should fail on an unknown service", func() {
		_, err := NewNotifier(newCommand("--notification-url", "nosuchservice://foo"))
		gomega.Expect(err).To(gomega.MatchError(errCreateSenderFailed))
	})

	ginkgo.It("should honor the skip title flag", func() {
		data := GetTemplateData(newCommand("--notification-skip-title", "--notifications-hostname", "box"))
		gomega.Expect(data).To(gomega.Equal(StaticData{Host: "box"}))
	})
})

package actions_test

import (
	"context"
	"errors"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"

	"github.com/nicholas-fedor/dockupdate/internal/actions"
	"github.com/nicholas-fedor/dockupdate/internal/actions/mocks"
	"github.com/nicholas-fedor/dockupdate/pkg/container"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

const (
	imageFoo   = types.ImageID("sha256:f00")
	imageNginx = types.ImageID("sha256:0123456789abcdef")
)

var errRegistryDown = errors.New("registry down")

func fooImage() types.LocalImage {
	return types.LocalImage{
		ID:          imageFoo,
		RepoTags:    []string{"foo/bar:1"},
		RepoDigests: []string{"foo/bar@sha256:AAA"},
	}
}

func nginxImage() types.LocalImage {
	return types.LocalImage{
		ID:          imageNginx,
		RepoTags:    []string{"nginx:1.25.0"},
		RepoDigests: []string{"nginx@sha256:CCC"},
	}
}

var _ = ginkgo.Describe("the orchestrator", func() {
	var (
		data         *mocks.TestData
		engine       *mocks.MockEngine
		registry     *mocks.MockRegistry
		orchestrator *actions.Orchestrator
	)

	ginkgo.BeforeEach(func() {
		data = &mocks.TestData{}
		registry = &mocks.MockRegistry{}
		engine = mocks.CreateMockEngine(data)
		orchestrator = &actions.Orchestrator{
			Engine:   engine,
			Registry: registry,
			Params:   types.UpdateParams{StopTimeout: 10 * time.Second},
		}
	})

	ginkgo.AfterEach(func() {
		registry.AssertExpectations(ginkgo.GinkgoT())
	})

	ginkgo.When("a stopped container's image has a new digest", func() {
		ginkgo.BeforeEach(func() {
			data.Images = []types.LocalImage{fooImage()}
			data.Containers = []mocks.MockContainer{
				mocks.CreateMockContainer("c1", "app", imageFoo, "foo/bar:1", false, nil),
			}
			registry.On("ResolveDigests", mock.Anything, "index.docker.io", "foo/bar", "1").
				Return([]string{"sha256:BBB"}, nil)
		})

		ginkgo.It("should remove, swap and recreate without starting", func() {
			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(engine.Calls()).To(gomega.Equal([]string{
				"remove app",
				"remove-image sha256:f00",
				"pull foo/bar:1",
				"create app foo/bar:1",
			}))

			gomega.Expect(report.Updated()).To(gomega.HaveLen(1))
			gomega.Expect(report.Updated()[0].Name()).To(gomega.Equal("foo/bar"))
			gomega.Expect(report.Containers()).To(gomega.HaveLen(1))
			gomega.Expect(report.Containers()[0].State()).To(gomega.Equal("Updated"))
			gomega.Expect(report.Containers()[0].NewID()).To(gomega.Equal(types.ContainerID("new-app")))
			registry.AssertNotCalled(ginkgo.GinkgoT(), "ListTags", mock.Anything, mock.Anything, mock.Anything)
		})

		ginkgo.It("should make no mutating call in dry-run mode", func() {
			hook := test.NewGlobal()
			defer hook.Reset()

			orchestrator.Params.DryRun = true

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(engine.Calls()).To(gomega.BeEmpty())
			gomega.Expect(report.DryRun()).To(gomega.BeTrue())
			gomega.Expect(report.Updated()).To(gomega.HaveLen(1))

			var planned []string

			for _, entry := range hook.AllEntries() {
				if entry.Data["dry_run"] == true && entry.Level == logrus.InfoLevel {
					planned = append(planned, entry.Message)
				}
			}

			gomega.Expect(planned).To(gomega.Equal([]string{
				"Removing container",
				"Removing old image",
				"Pulling image",
				"Creating container",
			}))
		})

		ginkgo.It("should pull with the registry's credentials", func() {
			creds := &mocks.StaticCredentials{
				Credentials: &types.RegistryCredentials{Username: "user", Password: "pass"},
			}
			orchestrator.Credentials = creds

			_, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(creds.Requested).To(gomega.Equal([]string{"index.docker.io"}))
			gomega.Expect(data.PullCredentials["foo/bar:1"]).To(gomega.Equal(creds.Credentials))
		})

		ginkgo.It("should skip images excluded by name", func() {
			registry.ExpectedCalls = nil
			orchestrator.Params.Include = []string{"bar"}
			orchestrator.Params.Exclude = []string{"foo"}

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(engine.Calls()).To(gomega.BeEmpty())
			gomega.Expect(report.Scanned()).To(gomega.BeEmpty())
			gomega.Expect(report.Skipped()).To(gomega.HaveLen(1))
		})

		ginkgo.It("should skip images the operator declines", func() {
			confirmer := &mocks.ScriptedConfirmer{}
			orchestrator.Params.Interactive = true
			orchestrator.Confirmer = confirmer

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(confirmer.Prompts).To(gomega.Equal([]string{"Update foo/bar:1?"}))
			gomega.Expect(engine.Calls()).To(gomega.BeEmpty())
			gomega.Expect(report.Skipped()).To(gomega.HaveLen(1))
			gomega.Expect(report.Skipped()[0].Error()).To(gomega.ContainSubstring("declined"))
		})

		ginkgo.It("should update images the operator confirms", func() {
			orchestrator.Params.Interactive = true
			orchestrator.Confirmer = &mocks.ScriptedConfirmer{Answers: map[string]bool{"Update foo/bar:1?": true}}

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(report.Updated()).To(gomega.HaveLen(1))
		})
	})

	ginkgo.When("the digest matches but a newer version exists", func() {
		ginkgo.BeforeEach(func() {
			data.Images = []types.LocalImage{nginxImage()}
			data.Containers = []mocks.MockContainer{
				mocks.CreateMockContainer("c1", "web", imageNginx, "nginx:1.25.0", true, nil),
			}
			registry.On("ResolveDigests", mock.Anything, "index.docker.io", "library/nginx", "1.25.0").
				Return([]string{"sha256:CCC"}, nil)
			registry.On("ListTags", mock.Anything, "index.docker.io", "library/nginx").
				Return([]string{"1.24.0", "1.25.0", "1.26.1", "1.27.0-alpine", "latest"}, nil)
		})

		ginkgo.It("should move the container to the best matching tag", func() {
			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(engine.Calls()).To(gomega.Equal([]string{
				"stop web",
				"remove web",
				"remove-image sha256:0123456789abcdef",
				"pull nginx:1.26.1",
				"create web nginx:1.26.1",
				"start new-web",
			}))
			gomega.Expect(report.Updated()[0].TargetTag()).To(gomega.Equal("1.26.1"))
			gomega.Expect(data.Created["web"].Image()).To(gomega.Equal("nginx:1.26.1"))
		})
	})

	ginkgo.When("the image is current", func() {
		ginkgo.It("should report it fresh", func() {
			data.Images = []types.LocalImage{nginxImage()}
			registry.On("ResolveDigests", mock.Anything, "index.docker.io", "library/nginx", "1.25.0").
				Return([]string{"sha256:0000", "sha256:CCC"}, nil)
			registry.On("ListTags", mock.Anything, "index.docker.io", "library/nginx").
				Return([]string{"1.25.0", "latest"}, nil)

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(report.Fresh()).To(gomega.HaveLen(1))
			gomega.Expect(engine.Calls()).To(gomega.BeEmpty())
		})
	})

	ginkgo.When("containers carry update labels", func() {
		ginkgo.It("should report monitor-only images as stale without updating them", func() {
			data.Images = []types.LocalImage{nginxImage()}
			data.Containers = []mocks.MockContainer{
				mocks.CreateMockContainer("c1", "web", imageNginx, "nginx:1.25.0", true,
					map[string]string{container.MonitorOnlyLabel: "true"}),
			}
			registry.On("ResolveDigests", mock.Anything, "index.docker.io", "library/nginx", "1.25.0").
				Return([]string{"sha256:DDD"}, nil)

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(report.Stale()).To(gomega.HaveLen(1))
			gomega.Expect(engine.Calls()).To(gomega.BeEmpty())
		})

		ginkgo.It("should skip the version check of no-pull images", func() {
			data.Images = []types.LocalImage{nginxImage()}
			data.Containers = []mocks.MockContainer{
				mocks.CreateMockContainer("c1", "web", imageNginx, "nginx:1.25.0", true,
					map[string]string{container.NoPullLabel: "true"}),
			}
			registry.On("ResolveDigests", mock.Anything, "index.docker.io", "library/nginx", "1.25.0").
				Return([]string{"sha256:CCC"}, nil)

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(report.Fresh()).To(gomega.HaveLen(1))
			registry.AssertNotCalled(ginkgo.GinkgoT(), "ListTags", mock.Anything, mock.Anything, mock.Anything)
		})

		ginkgo.It("should only check opted-in images once any container opts in", func() {
			data.Images = []types.LocalImage{fooImage(), nginxImage()}
			data.Containers = []mocks.MockContainer{
				mocks.CreateMockContainer("c1", "app", imageFoo, "foo/bar:1", false,
					map[string]string{container.EnableLabel: "true"}),
				mocks.CreateMockContainer("c2", "web", imageNginx, "nginx:1.25.0", false, nil),
			}
			registry.On("ResolveDigests", mock.Anything, "index.docker.io", "foo/bar", "1").
				Return([]string{"foo/bar@sha256:AAA"}, nil)

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(report.Fresh()).To(gomega.HaveLen(1))
			gomega.Expect(report.Skipped()).To(gomega.HaveLen(1))
			gomega.Expect(report.Skipped()[0].Name()).To(gomega.Equal("nginx"))
		})

		ginkgo.It("should skip images of opted-out containers", func() {
			data.Images = []types.LocalImage{fooImage()}
			data.Containers = []mocks.MockContainer{
				mocks.CreateMockContainer("c1", "app", imageFoo, "foo/bar:1", false,
					map[string]string{container.EnableLabel: "false"}),
			}

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(report.Skipped()).To(gomega.HaveLen(1))
		})
	})

	ginkgo.When("containers depend on each other", func() {
		ginkgo.BeforeEach(func() {
			data.Images = []types.LocalImage{fooImage()}
			data.Containers = []mocks.MockContainer{
				mocks.CreateMockContainer("c3", "proxy", imageFoo, "foo/bar:1", true,
					map[string]string{container.DependsOnLabel: "app"}),
				mocks.CreateMockContainer("c2", "app", imageFoo, "foo/bar:1", true,
					map[string]string{container.DependsOnLabel: "db"}),
				mocks.CreateMockContainer("c1", "db", imageFoo, "foo/bar:1", true, nil),
			}
			registry.On("ResolveDigests", mock.Anything, "index.docker.io", "foo/bar", "1").
				Return([]string{"sha256:BBB"}, nil)
		})

		ginkgo.It("should tear down dependencies first and recreate in reverse", func() {
			_, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(engine.Calls()).To(gomega.Equal([]string{
				"stop db", "remove db",
				"stop app", "remove app",
				"stop proxy", "remove proxy",
				"remove-image sha256:f00",
				"pull foo/bar:1",
				"create proxy foo/bar:1", "start new-proxy",
				"create app foo/bar:1", "start new-app",
				"create db foo/bar:1", "start new-db",
			}))
		})

		ginkgo.It("should kill a container that does not stop", func() {
			data.StopErrors = map[types.ContainerID]error{"c2": errors.New("timeout")}

			_, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(engine.Calls()[2:5]).To(gomega.Equal([]string{"stop app", "kill app", "remove app"}))
		})

		ginkgo.It("should force-remove a container that can be neither stopped nor killed", func() {
			data.StopErrors = map[types.ContainerID]error{"c2": errors.New("timeout")}
			data.KillErrors = map[types.ContainerID]error{"c2": errors.New("permission denied")}

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(engine.Calls()[2:5]).To(gomega.Equal([]string{"stop app", "kill app", "remove app"}))
			gomega.Expect(engine.Calls()).To(gomega.ContainElement("create app foo/bar:1"))

			for _, c := range report.Containers() {
				gomega.Expect(c.State()).To(gomega.Equal("Updated"), c.Name())
			}
		})

		ginkgo.It("should warn about containers left behind before swapping the image", func() {
			hook := test.NewGlobal()
			defer hook.Reset()

			data.StopErrors = map[types.ContainerID]error{"c2": errors.New("timeout")}
			data.KillErrors = map[types.ContainerID]error{"c2": errors.New("permission denied")}
			data.RemoveErrors = map[types.ContainerID]error{"c2": errors.New("device busy")}

			_, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(engine.Calls()).To(gomega.ContainElement("remove app"))

			var warning *logrus.Entry

			for _, entry := range hook.AllEntries() {
				if entry.Level == logrus.WarnLevel && entry.Data["left_behind"] != nil {
					warning = entry
				}
			}

			gomega.Expect(warning).NotTo(gomega.BeNil())
			gomega.Expect(warning.Data["left_behind"]).To(gomega.Equal([]string{"app"}))
			gomega.Expect(warning.Message).To(gomega.ContainSubstring("1 containers could not be removed"))
		})

		ginkgo.It("should not recreate a container whose teardown failed", func() {
			data.RemoveErrors = map[types.ContainerID]error{"c2": errors.New("device busy")}

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(engine.Calls()).NotTo(gomega.ContainElement("create app foo/bar:1"))
			gomega.Expect(engine.Calls()).To(gomega.ContainElement("create proxy foo/bar:1"))
			gomega.Expect(engine.Calls()).To(gomega.ContainElement("create db foo/bar:1"))

			states := map[string]string{}
			for _, c := range report.Containers() {
				states[c.Name()] = c.State()
			}

			gomega.Expect(states).To(gomega.Equal(map[string]string{
				"app":   "Failed",
				"proxy": "Updated",
				"db":    "Updated",
			}))
		})

		ginkgo.It("should leave containers removed when the pull fails", func() {
			data.PullErrors = map[string]error{"foo/bar:1": errors.New("manifest unknown")}

			metric, err := actions.RunUpdatesWithNotifications(context.Background(), orchestrator, nil)
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(errors.Is(err, actions.ErrEngineUnreachable)).To(gomega.BeFalse())
			gomega.Expect(metric.Failed).To(gomega.Equal(1))
			gomega.Expect(metric.ContainersFailed).To(gomega.Equal(3))

			for _, call := range engine.Calls() {
				gomega.Expect(call).NotTo(gomega.HavePrefix("create"))
			}
		})
	})

	ginkgo.When("one image cannot be checked", func() {
		ginkgo.It("should still check and update the others", func() {
			data.Images = []types.LocalImage{nginxImage(), fooImage()}
			registry.On("ResolveDigests", mock.Anything, "index.docker.io", "library/nginx", "1.25.0").
				Return(nil, errRegistryDown)
			registry.On("ResolveDigests", mock.Anything, "index.docker.io", "foo/bar", "1").
				Return([]string{"sha256:BBB"}, nil)

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(report.Failed()).To(gomega.HaveLen(1))
			gomega.Expect(report.Failed()[0].Error()).To(gomega.ContainSubstring("registry down"))
			gomega.Expect(report.Updated()).To(gomega.HaveLen(1))
			gomega.Expect(engine.Calls()).To(gomega.ContainElement("pull foo/bar:1"))
		})
	})

	ginkgo.When("the engine is unreachable", func() {
		ginkgo.It("should fail before doing any work", func() {
			data.PingError = errors.New("connection refused")

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).To(gomega.MatchError(actions.ErrEngineUnreachable))
			gomega.Expect(report).To(gomega.BeNil())

			metric, err := actions.RunUpdatesWithNotifications(context.Background(), orchestrator, nil)
			gomega.Expect(err).To(gomega.MatchError(actions.ErrEngineUnreachable))
			gomega.Expect(metric).To(gomega.BeNil())
		})
	})

	ginkgo.When("the image list cannot be read", func() {
		ginkgo.It("should return the error with an empty report", func() {
			data.ListImagesError = errors.New("daemon busy")

			report, err := orchestrator.Run(context.Background())
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(report.Scanned()).To(gomega.BeEmpty())
		})
	})
})

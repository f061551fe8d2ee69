package container_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/ghttp"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerImageType "github.com/docker/docker/api/types/image"
	dockerNetworkType "github.com/docker/docker/api/types/network"
	dockerRegistryType "github.com/docker/docker/api/types/registry"
	dockerClient "github.com/docker/docker/client"

	"github.com/nicholas-fedor/dockupdate/pkg/compose"
	"github.com/nicholas-fedor/dockupdate/pkg/container"
	"github.com/nicholas-fedor/dockupdate/pkg/container/mocks"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

const (
	containerID = "3d88e0e3543281c747d88b27e246578b65ae8964ba86c7cd7522cf84e0978134"
	newID       = "b978af0b858aa8855cce46b628817d4ed58e58f2c4f66c9b9c5449134ed4c008"
	imageID     = "sha256:4dbc5f9c07028a985e14d1393e849ea07f68804c4293050d5a641b138db72daa"
)

// inspectResponse builds inspection data for a container attached to the given networks.
func inspectResponse(networkMode string, networks ...string) *dockerContainerType.InspectResponse {
	endpoints := make(map[string]*dockerNetworkType.EndpointSettings, len(networks))
	for _, name := range networks {
		endpoints[name] = &dockerNetworkType.EndpointSettings{
			NetworkID: name + "-id",
			Aliases:   []string{"web", "3d88e0e35432"},
		}
	}

	return &dockerContainerType.InspectResponse{
		ContainerJSONBase: &dockerContainerType.ContainerJSONBase{
			ID:    containerID,
			Name:  "/web",
			Image: imageID,
			State: &dockerContainerType.State{Running: true},
			HostConfig: &dockerContainerType.HostConfig{
				NetworkMode: dockerContainerType.NetworkMode(networkMode),
				PortBindings: nat.PortMap{
					"80/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "8080"}},
				},
			},
		},
		Config: &dockerContainerType.Config{
			Hostname:     "3d88e0e35432",
			Image:        "foo/bar:1.0",
			ExposedPorts: nat.PortSet{"80/tcp": struct{}{}},
			Labels: map[string]string{
				compose.ComposeProjectLabel: "app",
			},
		},
		NetworkSettings: &dockerContainerType.NetworkSettings{Networks: endpoints},
	}
}

var _ = ginkgo.Describe("the engine client", func() {
	var (
		mockServer *ghttp.Server
		client     *container.Client
		progress   *gbytes.Buffer
		ctx        context.Context
	)

	newDocker := func(opts ...dockerClient.Opt) dockerClient.APIClient {
		docker, err := dockerClient.NewClientWithOpts(append([]dockerClient.Opt{
			dockerClient.WithHost(mockServer.URL()),
			dockerClient.WithHTTPClient(mockServer.HTTPTestServer.Client()),
		}, opts...)...)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		return docker
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		mockServer = ghttp.NewServer()
		progress = gbytes.NewBuffer()
		client = container.NewClientWithAPI(newDocker(), progress)
	})

	ginkgo.AfterEach(func() {
		mockServer.Close()
	})

	ginkgo.Describe("ListImages", func() {
		ginkgo.It("should return tags and digests", func() {
			mockServer.AppendHandlers(mocks.ListImagesHandler(dockerImageType.Summary{
				ID:          imageID,
				RepoTags:    []string{"foo/bar:1.0"},
				RepoDigests: []string{"foo/bar@sha256:d68e1e532088964195ad3a0a71526bc2f11a78de0def85629beb75e2265f0547"},
			}))

			images, err := client.ListImages(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(images).To(gomega.HaveLen(1))
			gomega.Expect(images[0].ID).To(gomega.Equal(types.ImageID(imageID)))
			gomega.Expect(images[0].RepoTags).To(gomega.Equal([]string{"foo/bar:1.0"}))
		})
	})

	ginkgo.Describe("ListContainers", func() {
		ginkgo.It("should include stopped containers and trim names", func() {
			mockServer.AppendHandlers(mocks.ListContainersHandler(
				dockerContainerType.Summary{ID: containerID, Names: []string{"/web"}, ImageID: imageID, State: "running"},
				dockerContainerType.Summary{ID: newID, Names: []string{"/worker"}, ImageID: imageID, State: "exited"},
			))

			containers, err := client.ListContainers(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(containers).To(gomega.HaveLen(2))
			gomega.Expect(containers[0].Name).To(gomega.Equal("web"))
			gomega.Expect(containers[0].Running).To(gomega.BeTrue())
			gomega.Expect(containers[1].Running).To(gomega.BeFalse())
			gomega.Expect(containers[1].ImageID).To(gomega.Equal(types.ImageID(imageID)))
		})
	})

	ginkgo.Describe("InspectContainer", func() {
		ginkgo.It("should capture a spec fit for recreation", func() {
			mockServer.AppendHandlers(mocks.GetContainerHandler(containerID, inspectResponse("frontend", "frontend")))

			info, err := client.InspectContainer(ctx, containerID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(info.Name).To(gomega.Equal("web"))
			gomega.Expect(info.Running).To(gomega.BeTrue())
			gomega.Expect(info.Project).To(gomega.Equal("app"))
			gomega.Expect(info.Spec.Config.Hostname).To(gomega.BeEmpty())
			gomega.Expect(info.Spec.Image()).To(gomega.Equal("foo/bar:1.0"))
			gomega.Expect(info.Spec.HostConfig.PortBindings).To(gomega.HaveKey(nat.Port("80/tcp")))
			gomega.Expect(info.Spec.NetworkingConfig.EndpointsConfig).To(gomega.HaveKey("frontend"))
			gomega.Expect(info.Spec.NetworkingConfig.EndpointsConfig["frontend"].Aliases).To(gomega.Equal([]string{"web"}))
		})

		ginkgo.It("should not copy endpoints of a host network container", func() {
			mockServer.AppendHandlers(mocks.GetContainerHandler(containerID, inspectResponse("host", "host")))

			info, err := client.InspectContainer(ctx, containerID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(info.Spec.NetworkingConfig.EndpointsConfig).To(gomega.BeEmpty())
		})

		ginkgo.It("should drop exposed ports when sharing another container's network", func() {
			mockServer.AppendHandlers(mocks.GetContainerHandler(containerID, inspectResponse("container:"+newID)))

			info, err := client.InspectContainer(ctx, containerID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(info.Spec.Config.ExposedPorts).To(gomega.BeNil())
		})

		ginkgo.It("should fail for a missing container", func() {
			mockServer.AppendHandlers(mocks.GetContainerHandler(containerID, nil))

			_, err := client.InspectContainer(ctx, containerID)
			gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("failed to inspect container")))
		})
	})

	ginkgo.Describe("CreateContainer", func() {
		ginkgo.It("should create the container under its name", func() {
			mockServer.AppendHandlers(mocks.CreateContainerHandler("web", newID))
			spec := (&types.ContainerSpec{Config: &dockerContainerType.Config{}}).WithImage("foo/bar:1.1")

			id, err := client.CreateContainer(ctx, "web", spec)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(id).To(gomega.Equal(types.ContainerID(newID)))
		})

		ginkgo.It("should attach additional networks afterwards on legacy API versions", func() {
			client = container.NewClientWithAPI(newDocker(dockerClient.WithVersion("1.43")), progress)
			mockServer.AppendHandlers(
				ghttp.CombineHandlers(
					mocks.CreateContainerHandler("web", newID),
					func(_ http.ResponseWriter, r *http.Request) {
						var body struct {
							NetworkingConfig dockerNetworkType.NetworkingConfig
						}
						gomega.Expect(json.NewDecoder(r.Body).Decode(&body)).To(gomega.Succeed())
						gomega.Expect(body.NetworkingConfig.EndpointsConfig).To(gomega.HaveLen(1))
						gomega.Expect(body.NetworkingConfig.EndpointsConfig).To(gomega.HaveKey("frontend"))
					},
				),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", gomega.HaveSuffix("/networks/backend/connect")),
					ghttp.RespondWith(http.StatusOK, nil),
				),
			)

			spec := &types.ContainerSpec{
				Config:     &dockerContainerType.Config{Image: "foo/bar:1.1"},
				HostConfig: &dockerContainerType.HostConfig{NetworkMode: "frontend"},
				NetworkingConfig: &dockerNetworkType.NetworkingConfig{
					EndpointsConfig: map[string]*dockerNetworkType.EndpointSettings{
						"frontend": {},
						"backend":  {},
					},
				},
			}

			_, err := client.CreateContainer(ctx, "web", spec)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(mockServer.ReceivedRequests()).To(gomega.HaveLen(2))
		})
	})

	ginkgo.Describe("StopContainer", func() {
		ginkgo.It("should pass the grace period in seconds", func() {
			mockServer.AppendHandlers(ghttp.CombineHandlers(
				mocks.StopContainerHandler(containerID, mocks.Found),
				func(_ http.ResponseWriter, r *http.Request) {
					gomega.Expect(r.URL.Query().Get("t")).To(gomega.Equal("10"))
				},
			))

			gomega.Expect(client.StopContainer(ctx, containerID, 10*time.Second)).To(gomega.Succeed())
		})

		ginkgo.It("should treat a missing container as stopped", func() {
			mockServer.AppendHandlers(mocks.StopContainerHandler(containerID, mocks.Missing))
			gomega.Expect(client.StopContainer(ctx, containerID, time.Second)).To(gomega.Succeed())
		})

		ginkgo.It("should report engine failures", func() {
			mockServer.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "server error"))

			err := client.StopContainer(ctx, containerID, time.Second)
			gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("failed to stop container")))
		})
	})

	ginkgo.Describe("KillContainer", func() {
		ginkgo.It("should send SIGKILL", func() {
			mockServer.AppendHandlers(ghttp.CombineHandlers(
				mocks.KillContainerHandler(containerID, mocks.Found),
				func(_ http.ResponseWriter, r *http.Request) {
					gomega.Expect(r.URL.Query().Get("signal")).To(gomega.Equal("SIGKILL"))
				},
			))

			gomega.Expect(client.KillContainer(ctx, containerID)).To(gomega.Succeed())
		})
	})

	ginkgo.Describe("RemoveContainer", func() {
		ginkgo.It("should force removal and keep volumes", func() {
			mockServer.AppendHandlers(ghttp.CombineHandlers(
				mocks.RemoveContainerHandler(containerID, mocks.Found),
				func(_ http.ResponseWriter, r *http.Request) {
					gomega.Expect(r.URL.Query().Get("force")).To(gomega.Equal("1"))
					gomega.Expect(r.URL.Query().Get("v")).To(gomega.BeEmpty())
				},
			))

			gomega.Expect(client.RemoveContainer(ctx, containerID)).To(gomega.Succeed())
		})

		ginkgo.It("should treat a missing container as removed", func() {
			mockServer.AppendHandlers(mocks.RemoveContainerHandler(containerID, mocks.Missing))
			gomega.Expect(client.RemoveContainer(ctx, containerID)).To(gomega.Succeed())
		})
	})

	ginkgo.Describe("RemoveImage", func() {
		ginkgo.It("should remove the image", func() {
			mockServer.AppendHandlers(mocks.RemoveImageHandler(imageID, mocks.Found))
			gomega.Expect(client.RemoveImage(ctx, imageID)).To(gomega.Succeed())
		})

		ginkgo.It("should treat a missing image as removed", func() {
			mockServer.AppendHandlers(mocks.RemoveImageHandler(imageID, mocks.Missing))
			gomega.Expect(client.RemoveImage(ctx, imageID)).To(gomega.Succeed())
		})
	})

	ginkgo.Describe("PullImage", func() {
		ginkgo.It("should render progress and send credentials", func() {
			mockServer.AppendHandlers(ghttp.CombineHandlers(
				mocks.PullImageHandler("1.1", `{"status":"Pulling from foo/bar","id":"1.1"}`, `{"status":"Download complete"}`),
				func(_ http.ResponseWriter, r *http.Request) {
					raw, err := base64.URLEncoding.DecodeString(r.Header.Get("X-Registry-Auth"))
					gomega.Expect(err).NotTo(gomega.HaveOccurred())

					var auth dockerRegistryType.AuthConfig
					gomega.Expect(json.Unmarshal(raw, &auth)).To(gomega.Succeed())
					gomega.Expect(auth.Username).To(gomega.Equal("user"))
					gomega.Expect(auth.ServerAddress).To(gomega.Equal("index.docker.io"))
				},
			))

			err := client.PullImage(ctx, "foo/bar:1.1", &types.RegistryCredentials{Username: "user", Password: "pass"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(progress).To(gbytes.Say("Pulling from foo/bar"))
		})

		ginkgo.It("should fail on an error in the progress stream", func() {
			mockServer.AppendHandlers(mocks.PullImageHandler("9.9",
				`{"errorDetail":{"message":"manifest unknown"},"error":"manifest unknown"}`))

			err := client.PullImage(ctx, "foo/bar:9.9", nil)
			gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("manifest unknown")))
		})
	})
})

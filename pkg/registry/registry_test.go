package registry_test

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/nicholas-fedor/dockupdate/pkg/registry"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/auth"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/digest"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

const testDigest = "sha256:d68e1e532088964195ad3a0a71526bc2f11a78de0def85629beb75e2265f0547"

// staticCredentials returns the same credentials for every registry.
type staticCredentials struct {
	credentials *types.RegistryCredentials
}

func (s staticCredentials) GetCredentials(string) *types.RegistryCredentials {
	return s.credentials
}

func digestHeader() http.Header {
	header := http.Header{}
	header.Set(digest.ContentDigestHeader, testDigest)

	return header
}

var _ = ginkgo.Describe("the registry client", func() {
	var (
		server *ghttp.Server
		host   string
		cache  *auth.TokenCache
		client *registry.Client
	)

	challenge := func() http.Header {
		header := http.Header{}
		header.Set(auth.ChallengeHeader,
			`Bearer realm="`+server.URL()+`/token",service="`+host+`",scope="repository:foo/bar:pull"`)

		return header
	}

	ginkgo.BeforeEach(func() {
		server = ghttp.NewServer()
		host = strings.TrimPrefix(server.URL(), "http://")
		cache = auth.NewTokenCache()
		client = registry.NewClient(
			registry.WithHTTPClient(server.HTTPTestServer.Client()),
			registry.WithInsecureRegistries(host),
			registry.WithTokenCache(cache),
			registry.WithCredentials(staticCredentials{
				credentials: &types.RegistryCredentials{Username: "user", Password: "pass"},
			}),
		)
	})

	ginkgo.AfterEach(func() {
		server.Close()
	})

	ginkgo.When("the registry requires a bearer token", func() {
		ginkgo.It("should answer the challenge once and reuse the token", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodHead, "/v2/foo/bar/manifests/1.0"),
					ghttp.RespondWith(http.StatusUnauthorized, nil, challenge()),
				),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/token"),
					ghttp.VerifyBasicAuth("user", "pass"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"token": "secret"}),
				),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodHead, "/v2/foo/bar/manifests/1.0"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer secret"),
					ghttp.RespondWith(http.StatusOK, nil, digestHeader()),
				),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodHead, "/v2/foo/bar/manifests/1.0"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer secret"),
					ghttp.RespondWith(http.StatusOK, nil, digestHeader()),
				),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/v2/foo/bar/tags/list", "n=100"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer secret"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
						"name": "foo/bar",
						"tags": []string{"1.0", "1.1"},
					}),
				),
			)

			digests, err := client.ResolveDigests(context.Background(), host, "foo/bar", "1.0")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(digests).To(gomega.Equal([]string{testDigest}))

			tags, err := client.ListTags(context.Background(), host, "foo/bar")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(tags).To(gomega.Equal([]string{"1.0", "1.1"}))

			gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(5))
			gomega.Expect(cache.Len()).To(gomega.Equal(1))
		})

		ginkgo.It("should fail with an authentication error when the token is rejected", func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusUnauthorized, nil, challenge()),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"token": "secret"}),
				ghttp.RespondWith(http.StatusUnauthorized, nil, challenge()),
			)

			_, err := client.ResolveDigests(context.Background(), host, "foo/bar", "1.0")
			gomega.Expect(errors.Is(err, auth.ErrAuthentication)).To(gomega.BeTrue())
		})

		ginkgo.It("should fail with an authentication error when the realm refuses", func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusUnauthorized, nil, challenge()),
				ghttp.RespondWith(http.StatusForbidden, nil),
			)

			_, err := client.ListTags(context.Background(), host, "foo/bar")
			gomega.Expect(errors.Is(err, auth.ErrAuthentication)).To(gomega.BeTrue())
		})
	})

	ginkgo.When("the registry uses basic authentication", func() {
		ginkgo.It("should report an unsupported scheme", func() {
			header := http.Header{}
			header.Set(auth.ChallengeHeader, `Basic realm="registry"`)
			server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, nil, header))

			_, err := client.ResolveDigests(context.Background(), host, "foo/bar", "1.0")
			gomega.Expect(errors.Is(err, auth.ErrUnsupportedAuthScheme)).To(gomega.BeTrue())
		})
	})

	ginkgo.When("neither probe reports a digest", func() {
		ginkgo.It("should return a manifest not found error", func() {
			server.AppendHandlers(
				ghttp.RespondWith(http.StatusNotFound, nil),
				ghttp.RespondWith(http.StatusNotFound, nil),
			)

			_, err := client.ResolveDigests(context.Background(), host, "foo/bar", "missing")
			gomega.Expect(errors.Is(err, registry.ErrManifestNotFound)).To(gomega.BeTrue())

			var notFound registry.ManifestNotFoundError
			gomega.Expect(errors.As(err, &notFound)).To(gomega.BeTrue())
			gomega.Expect(notFound.Tag).To(gomega.Equal("missing"))
		})
	})

	ginkgo.When("the registry is public", func() {
		ginkgo.It("should send no authorization header", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					func(_ http.ResponseWriter, r *http.Request) {
						gomega.Expect(r.Header.Get("Authorization")).To(gomega.BeEmpty())
					},
					ghttp.RespondWith(http.StatusOK, nil, digestHeader()),
				),
				ghttp.RespondWith(http.StatusNotFound, nil),
			)

			digests, err := client.ResolveDigests(context.Background(), host, "foo/bar", "1.0")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(digests).To(gomega.Equal([]string{testDigest}))
			gomega.Expect(cache.Len()).To(gomega.BeZero())
		})
	})
})

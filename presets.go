package cloudflareip

// PresetCloudflareDirect configures resolution for an app that receives
// traffic straight from the CDN edge.
//
// Only CDN ranges are trusted; loopback and private networks are not.
func PresetCloudflareDirect() Option {
	return WithoutLocalProxyDefaults()
}

// PresetCloudflareBehindLoopbackProxy configures resolution for an app behind
// a reverse proxy on the same host (for example NGINX on localhost) which in
// turn sits behind the CDN.
func PresetCloudflareBehindLoopbackProxy() Option {
	return func(c *config) error {
		return applyOptions(c,
			WithoutLocalProxyDefaults(),
			TrustLoopbackProxy(),
		)
	}
}

// PresetCloudflareBehindPrivateNetwork configures resolution for an app
// behind load balancers on loopback or private networks, in a typical VM or
// container setup.
func PresetCloudflareBehindPrivateNetwork() Option {
	return TrustLocalProxyDefaults()
}

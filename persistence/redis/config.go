package redis

import rd "github.com/go-redis/redis/v9"

type Config struct {
	Addrs     []string
	Namespace string
	PoolSize  int
	Password  string
}

func NewClient(conf Config) rd.UniversalClient {
	return rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    conf.Addrs,
		Password: conf.Password,
		PoolSize: conf.PoolSize,
	})
}

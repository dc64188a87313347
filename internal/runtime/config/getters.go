package config

// Getters satisfy transport.Config so transports never import this package.

func (c *Config) GetPubSubSystem() string { return c.PubSubSystem }

func (c *Config) GetKafkaBrokers() []string     { return c.KafkaBrokers }
func (c *Config) GetKafkaClientID() string      { return c.KafkaClientID }
func (c *Config) GetKafkaConsumerGroup() string { return c.KafkaConsumerGroup }

func (c *Config) GetRabbitMQURL() string         { return c.RabbitMQURL }
func (c *Config) GetRabbitMQQueueSuffix() string { return c.RabbitMQQueueSuffix }

func (c *Config) GetNATSURL() string { return c.NATSURL }

func (c *Config) GetAWSRegion() string          { return c.AWSRegion }
func (c *Config) GetAWSAccountID() string       { return c.AWSAccountID }
func (c *Config) GetAWSAccessKeyID() string     { return c.AWSAccessKeyID }
func (c *Config) GetAWSSecretAccessKey() string { return c.AWSSecretAccessKey }
func (c *Config) GetAWSEndpoint() string        { return c.AWSEndpoint }

func (c *Config) GetHTTPServerAddress() string { return c.HTTPServerAddress }

func (c *Config) GetPostgresURL() string    { return c.PostgresURL }
func (c *Config) GetPostgresSchema() string { return c.PostgresSchema }

func (c *Config) GetSQLitePath() string { return c.SQLitePath }

package pdf

import "petprint/logger"

var log = logger.WithNamespace("pdf")

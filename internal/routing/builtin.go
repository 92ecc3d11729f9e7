package routing

import "github.com/xiaot623/ensemble/internal/domain"

func init() {
	MustRegister(domain.RoleDesign,
		"design", "diseño", "diseno", "ui", "ux", "layout", "interfaz", "accessibility",
		"accesibilidad", "estilo", "style", "visual", "color", "responsive")
	MustRegister(domain.RoleCode,
		"component", "componente", "function", "función", "funcion", "implement",
		"implementar", "edge function", "api", "code", "código", "codigo", "endpoint",
		"backend", "frontend", "database", "base de datos")
	MustRegister(domain.RoleTesting,
		"test", "prueba", "bug", "error", "fallo", "security", "seguridad",
		"vulnerability", "vulnerabilidad", "qa")
	MustRegister(domain.RoleLegal,
		"license", "licencia", "privacy", "privacidad", "compliance", "cumplimiento",
		"terms", "términos", "terminos", "gdpr", "legal", "copyright")
	MustRegister(domain.RoleGovernance,
		"vote", "voto", "votación", "votacion", "community", "comunidad", "approve",
		"aprobar", "reject", "rechazar", "consensus", "consenso", "proposal", "propuesta",
		"governance", "gobernanza")
}

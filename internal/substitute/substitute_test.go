package substitute

import (
	"testing"
)

func TestCanonical(t *testing.T) {
	cases := map[string]string{
		"NOME-DO-CLIENTE": "NOME-DO-CLIENTE",
		"nome_do_cliente": "NOME-DO-CLIENTE",
		"ENDEREÇO":        "ENDERECO",
		"endereço":        "ENDERECO",
		"Horários":        "HORARIOS",
		"CODIGO_PEDIDO":   "CODIGO-PEDIDO",
	}
	for in, want := range cases {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestApply(t *testing.T) {
	vals := map[string]string{
		KeyCustomerName: "Maria",
		KeyCompanyName:  "Nucleo Lanches",
		KeyOrderCode:    "P042",
	}

	in := "Oi [NOME-DO-CLIENTE]! Aqui é a [nome_empresa]. Seu pedido [CODIGO-PEDIDO] está pronto."
	want := "Oi Maria! Aqui é a Nucleo Lanches. Seu pedido P042 está pronto."
	if got := Apply(in, vals); got != want {
		t.Errorf("Apply = %q; want %q", got, want)
	}
}

func TestApply_AccentVariants(t *testing.T) {
	vals := map[string]string{KeyAddress: "Rua das Flores, 10"}
	if got := Apply("Retire em [ENDEREÇO].", vals); got != "Retire em Rua das Flores, 10." {
		t.Errorf("accented variant not resolved: %q", got)
	}
}

func TestApply_UnknownPlaceholderRemoved(t *testing.T) {
	if got := Apply("Olá [DESCONHECIDO]!", nil); got != "Olá !" {
		t.Errorf("unknown placeholder should become empty, got %q", got)
	}
}

func TestApply_Idempotent(t *testing.T) {
	vals := map[string]string{
		KeyCustomerName: "Maria",
		KeyHours:        "seg: 18:00 às 23:00",
	}
	in := "Oi [NOME-DO-CLIENTE], nossos horários:\n[HORARIOS]"
	once := Apply(in, vals)
	twice := Apply(once, vals)
	if once != twice {
		t.Errorf("substitution not idempotent:\nonce  = %q\ntwice = %q", once, twice)
	}
}

func TestRenderBusinessHours(t *testing.T) {
	raw := `[
		{"day":"segunda","open":"18:00","close":"23:00"},
		{"day":"terça","closed":true},
		{"day":"sábado","open":"11:00","close":"14:00","open2":"18:00","close2":"23:30"}
	]`
	want := "segunda: 18:00 às 23:00\nterça: fechado\nsábado: 11:00 às 14:00 e 18:00 às 23:30"
	if got := RenderBusinessHours(raw); got != want {
		t.Errorf("RenderBusinessHours:\ngot  %q\nwant %q", got, want)
	}
}

func TestRenderBusinessHours_Invalid(t *testing.T) {
	if got := RenderBusinessHours("not json"); got != "" {
		t.Errorf("invalid input should render empty, got %q", got)
	}
	if got := RenderBusinessHours(""); got != "" {
		t.Errorf("empty input should render empty, got %q", got)
	}
}
